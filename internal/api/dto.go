package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/versions"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title    string `json:"title" example:"My Plan" validate:"required"`
	Emoji    string `json:"emoji,omitempty" example:"📋"`
	Category string `json:"category,omitempty" example:"Project"`
	Content  string `json:"content,omitempty" example:"# My Plan\nFirst draft."`
}

// Validate checks request fields.
func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Category, validation.In(categoryValues()...)),
	)
}

// UpdateContentRequest is the request body for replacing a document's
// content.
type UpdateContentRequest struct {
	Content  string `json:"content" example:"# Updated\nBody." validate:"required"`
	EditedBy string `json:"edited_by,omitempty" example:"Agent"`
}

// PatchDocumentRequest carries partial metadata updates. Absent fields
// are left untouched.
type PatchDocumentRequest struct {
	Title    *string `json:"title,omitempty" example:"Renamed"`
	Emoji    *string `json:"emoji,omitempty" example:"🔒"`
	Category *string `json:"category,omitempty" example:"Security"`
}

// Validate checks request fields.
func (r PatchDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.In(categoryValues()...)),
	)
}

// Entry is the index entry response type (aliased from the domain layer).
type Entry = index.Entry

// DocumentListResponse wraps index listings.
type DocumentListResponse struct {
	Documents []Entry `json:"documents" validate:"required"`
}

// ContentResponse wraps a document body with its header stripped.
type ContentResponse struct {
	Content string `json:"content" validate:"required"`
}

// VersionDescriptor is the snapshot summary response type (aliased
// from the domain layer).
type VersionDescriptor = versions.Descriptor

// VersionListResponse wraps snapshot listings, newest first.
type VersionListResponse struct {
	Versions []VersionDescriptor `json:"versions" validate:"required"`
}

func categoryValues() []any {
	cats := index.Categories()
	out := make([]any, len(cats))
	for i, c := range cats {
		out[i] = c
	}
	return out
}
