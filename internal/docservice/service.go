// Package docservice exposes the public document operations: list,
// read, write, create, delete, duplicate, and version history with
// restore. It owns the snapshot-before-overwrite policy.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/frontmatter"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/versions"
)

// DefaultEditor is the attribution recorded when a caller supplies
// none.
const DefaultEditor = "User"

const maxSlugLength = 60

// CreateParams are the inputs for creating a document.
type CreateParams struct {
	Title    string
	Icon     string
	Category string
	Body     string
}

// Service coordinates storage, index, and version-store operations.
type Service struct {
	store       storage.Provider
	manifest    *index.Manifest
	engine      *index.Engine
	versions    *versions.Store
	defaultIcon string
}

// New creates a document service.
func New(store storage.Provider, manifest *index.Manifest, engine *index.Engine, vstore *versions.Store, defaultIcon string) *Service {
	return &Service{
		store:       store,
		manifest:    manifest,
		engine:      engine,
		versions:    vstore,
		defaultIcon: defaultIcon,
	}
}

// List reconciles the index against the documents directory and
// returns it.
func (s *Service) List(_ context.Context) ([]index.Entry, error) {
	return s.engine.Reconcile()
}

// GetContent returns a document's body with the metadata header
// stripped. Rendering layers never see the header.
func (s *Service) GetContent(_ context.Context, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	data, err := s.store.Read(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
		}
		return "", err
	}
	return frontmatter.Strip(string(data)), nil
}

// Create derives a unique filename from the title, writes the initial
// body, and inserts an index entry.
func (s *Service) Create(_ context.Context, p CreateParams) (*index.Entry, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("create: title is required: %w", apperr.ErrInvalidArgument)
	}
	category := p.Category
	if category == "" {
		category = index.DefaultCategory
	}
	if !index.ValidCategory(category) {
		return nil, fmt.Errorf("create: unknown category %q: %w", p.Category, apperr.ErrInvalidArgument)
	}
	icon := p.Icon
	if icon == "" {
		icon = s.defaultIcon
	}

	id, err := s.uniqueID(slugify(title))
	if err != nil {
		return nil, err
	}

	body := p.Body
	if body == "" {
		body = "# " + title + "\n"
	}
	if err := s.store.Write(id, []byte(body)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := index.Entry{
		Filename:  id,
		Title:     title,
		Emoji:     icon,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.manifest.Upsert(entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Write replaces a document's body, snapshotting the prior content
// first. The ordering is strict: snapshot, then overwrite, never the
// reverse, or a crash between the two steps could lose the only copy
// of the pre-edit state. Prior metadata is preserved with the editor
// attribution updated; a missing file means a first write with
// nothing to snapshot.
func (s *Service) Write(_ context.Context, id, newBody, editedBy string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if editedBy == "" {
		editedBy = DefaultEditor
	}

	prior, err := s.store.Read(id)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if len(prior) > 0 {
		if err := s.versions.Snapshot(id, prior); err != nil {
			return err
		}
	}

	meta, _ := frontmatter.Parse(string(prior))
	meta.EditedBy = editedBy
	content := frontmatter.Build(meta) + newBody
	if err := s.store.Write(id, []byte(content)); err != nil {
		return err
	}

	// A missing entry is repaired by the next reconciliation pass.
	if err := s.manifest.Touch(id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// UpdateMeta patches the index entry only. The file's header on disk
// is synchronized lazily by the next content write.
func (s *Service) UpdateMeta(_ context.Context, id string, fields index.PatchFields) (*index.Entry, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if fields.Category != nil && !index.ValidCategory(*fields.Category) {
		return nil, fmt.Errorf("update meta: unknown category %q: %w", *fields.Category, apperr.ErrInvalidArgument)
	}
	return s.manifest.Patch(id, fields)
}

// Delete removes the file and its index entry together. It is
// idempotent: an already-missing file is fine. Version history is
// left in place; PurgeVersions is the explicit cleanup.
func (s *Service) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.store.Remove(id); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.manifest.Remove(id)
}

// Duplicate copies the stored file verbatim under a new derived
// identifier and inserts an index entry titled as a copy.
func (s *Service) Duplicate(_ context.Context, id string) (*index.Entry, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if ok, err := s.store.Exists(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}

	// Reconcile so the source entry is guaranteed present.
	entries, err := s.engine.Reconcile()
	if err != nil {
		return nil, err
	}
	var src *index.Entry
	for i := range entries {
		if entries[i].Filename == id {
			src = &entries[i]
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}

	newID, err := s.uniqueID("copy-of-" + strings.TrimSuffix(id, storage.DocExt))
	if err != nil {
		return nil, err
	}
	if err := s.store.Copy(id, newID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := index.Entry{
		Filename:  newID,
		Title:     "Copy of " + src.Title,
		Emoji:     src.Emoji,
		Category:  src.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.manifest.Upsert(entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListVersions enumerates a document's snapshots, newest first. No
// history is an empty list, not an error.
func (s *Service) ListVersions(_ context.Context, id string) ([]versions.Descriptor, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.versions.List(id), nil
}

// ReadVersion returns one snapshot's body with the header stripped.
func (s *Service) ReadVersion(_ context.Context, id, versionID string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	raw, err := s.versions.Read(id, versionID)
	if err != nil {
		return "", err
	}
	return frontmatter.Strip(string(raw)), nil
}

// RestoreVersion overwrites current content with a snapshot's stored
// bytes, snapshotting the current content first so the restore is
// itself undoable. Returns the restored body.
func (s *Service) RestoreVersion(_ context.Context, id, versionID string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	raw, err := s.versions.Read(id, versionID)
	if err != nil {
		return "", err
	}

	current, err := s.store.Read(id)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if len(current) > 0 {
		if err := s.versions.Snapshot(id, current); err != nil {
			return "", err
		}
	}

	if err := s.store.Write(id, raw); err != nil {
		return "", err
	}
	if err := s.manifest.Touch(id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	return frontmatter.Strip(string(raw)), nil
}

// PurgeVersions deletes a document's entire snapshot history.
func (s *Service) PurgeVersions(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.versions.Purge(id)
}

// validateID accepts only bare document filenames: no separators, no
// traversal, the document extension required, no dotfiles (the
// snapshot directory and temp files live under dot-prefixed names).
func validateID(id string) error {
	switch {
	case id == "",
		filepath.Base(id) != id,
		strings.HasPrefix(id, "."),
		!strings.HasSuffix(id, storage.DocExt),
		id == storage.DocExt:
		return fmt.Errorf("document id %q: %w", id, apperr.ErrInvalidArgument)
	}
	return nil
}

// slugify turns a title into a filesystem-safe identifier stem:
// lowercase, non-alphanumerics stripped, spaces to dashes, bounded
// length.
func slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// uniqueID appends the extension and deduplicates against existing
// files with a numeric suffix.
func (s *Service) uniqueID(slug string) (string, error) {
	candidate := slug + storage.DocExt
	for n := 1; ; n++ {
		ok, err := s.store.Exists(candidate)
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", slug, n, storage.DocExt)
	}
}
