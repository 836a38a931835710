package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/{id}/content", h.GetContent)
	r.Put("/documents/{id}/content", h.UpdateContent)
	r.Patch("/documents/{id}", h.PatchDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	r.Post("/documents/{id}/duplicate", h.DuplicateDocument)

	// Version history.
	r.Get("/documents/{id}/versions", h.ListVersions)
	r.Delete("/documents/{id}/versions", h.PurgeVersions)
	r.Get("/documents/{id}/versions/{versionID}", h.GetVersion)
	r.Post("/documents/{id}/versions/{versionID}/restore", h.RestoreVersion)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
