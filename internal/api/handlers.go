package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/index"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List all documents from the reconciled index
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	if entries == nil {
		entries = []index.Entry{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: entries})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	Entry
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	entry, err := h.svc.Create(r.Context(), docservice.CreateParams{
		Title:    req.Title,
		Icon:     req.Emoji,
		Category: req.Category,
		Body:     req.Content,
	})
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// GetContent handles GET /api/documents/{id}/content.
//
//	@Summary		Get a document's content with the metadata header stripped
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document filename"
//	@Success		200	{object}	ContentResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/content [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, err := h.svc.GetContent(r.Context(), id)
	if err != nil {
		writeError(w, "get content", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

// UpdateContent handles PUT /api/documents/{id}/content.
//
//	@Summary		Replace a document's content, snapshotting the prior state
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Document filename"
//	@Param			body	body	UpdateContentRequest	true	"New content"
//	@Success		204		"Content replaced"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.Write(r.Context(), id, req.Content, req.EditedBy); err != nil {
		writeError(w, "update content", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchDocument handles PATCH /api/documents/{id}.
//
//	@Summary		Update a document's index metadata
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Document filename"
//	@Param			body	body		PatchDocumentRequest	true	"Fields to change"
//	@Success		200		{object}	Entry
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [patch]
func (h *Handler) PatchDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req PatchDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	entry, err := h.svc.UpdateMeta(r.Context(), id, index.PatchFields{
		Title:    req.Title,
		Emoji:    req.Emoji,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, "patch document", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document and its index entry
//	@Tags			documents
//	@Param			id	path	string	true	"Document filename"
//	@Success		204	"Document deleted"
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateDocument handles POST /api/documents/{id}/duplicate.
//
//	@Summary		Duplicate a document under a derived filename
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document filename"
//	@Success		201	{object}	Entry
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/duplicate [post]
func (h *Handler) DuplicateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.svc.Duplicate(r.Context(), id)
	if err != nil {
		writeError(w, "duplicate document", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListVersions handles GET /api/documents/{id}/versions.
//
//	@Summary		List a document's snapshots, newest first
//	@Tags			versions
//	@Produce		json
//	@Param			id	path		string	true	"Document filename"
//	@Success		200	{object}	VersionListResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	descs, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, "list versions", err)
		return
	}
	if descs == nil {
		descs = []VersionDescriptor{}
	}
	writeJSON(w, http.StatusOK, VersionListResponse{Versions: descs})
}

// GetVersion handles GET /api/documents/{id}/versions/{versionID}.
//
//	@Summary		Read one snapshot's content with the header stripped
//	@Tags			versions
//	@Produce		json
//	@Param			id			path		string	true	"Document filename"
//	@Param			versionID	path		string	true	"Snapshot identifier"
//	@Success		200			{object}	ContentResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/versions/{versionID} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versionID := chi.URLParam(r, "versionID")
	content, err := h.svc.ReadVersion(r.Context(), id, versionID)
	if err != nil {
		writeError(w, "get version", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

// RestoreVersion handles POST /api/documents/{id}/versions/{versionID}/restore.
//
//	@Summary		Restore a snapshot as the current content
//	@Tags			versions
//	@Produce		json
//	@Param			id			path		string	true	"Document filename"
//	@Param			versionID	path		string	true	"Snapshot identifier"
//	@Success		200			{object}	ContentResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/versions/{versionID}/restore [post]
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versionID := chi.URLParam(r, "versionID")
	content, err := h.svc.RestoreVersion(r.Context(), id, versionID)
	if err != nil {
		writeError(w, "restore version", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

// PurgeVersions handles DELETE /api/documents/{id}/versions.
//
//	@Summary		Delete a document's entire snapshot history
//	@Tags			versions
//	@Param			id	path	string	true	"Document filename"
//	@Success		204	"History purged"
//	@Security		BearerAuth
//	@Router			/documents/{id}/versions [delete]
func (h *Handler) PurgeVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.PurgeVersions(r.Context(), id); err != nil {
		writeError(w, "purge versions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
