// Package versions implements the per-document snapshot archive.
//
// Snapshots are full copies of a document's stored content (header
// included), written before every overwrite so any prior state can be
// recovered. They live under <store-root>/<document-id>/<snapshot-id>.md
// and are never mutated after creation.
package versions

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/frontmatter"
)

// DefaultPreviewLength is the preview character budget when none is
// configured.
const DefaultPreviewLength = 120

// Descriptor summarizes one snapshot for listings.
type Descriptor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Author    string    `json:"author"`
	Preview   string    `json:"preview"`
}

// Store is a snapshot archive rooted at a single directory.
type Store struct {
	root       string
	maxPerDoc  int // 0 means unbounded
	previewLen int
	logger     *slog.Logger
}

// NewStore creates a snapshot store rooted at root. maxPerDoc caps
// retained snapshots per document (0 = unbounded); previewLen is the
// preview character budget (<=0 uses the default).
func NewStore(root string, maxPerDoc, previewLen int, logger *slog.Logger) *Store {
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, maxPerDoc: maxPerDoc, previewLen: previewLen, logger: logger}
}

// NewSnapshotID renders t as a sortable identifier safe for filenames:
// UTC RFC 3339 with fixed-width nanoseconds, ':' and '.' replaced by
// '-'. The fixed width keeps lexical order equal to chronological
// order.
func NewSnapshotID(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000000000Z")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return s
}

// Snapshot persists raw as a new snapshot of the named document,
// creating the document's scope if absent. When a retention cap is
// configured, the oldest snapshots beyond it are pruned afterwards.
func (s *Store) Snapshot(docID string, raw []byte) error {
	dir, err := s.scope(docID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("versions: create scope: %w", err)
	}

	id := NewSnapshotID(time.Now())
	path := filepath.Join(dir, id+".md")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("versions: write snapshot: %w", err)
	}

	if s.maxPerDoc > 0 {
		s.prune(dir)
	}
	return nil
}

// List enumerates all snapshots of the named document, newest first.
// An empty result means no edits have occurred yet; I/O failures
// degrade to "no history available" rather than propagating.
func (s *Store) List(docID string) []Descriptor {
	dir, err := s.scope(docID)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("versions: list failed", slog.String("doc", docID), slog.String("error", err.Error()))
		}
		return nil
	}

	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		d := Descriptor{ID: strings.TrimSuffix(e.Name(), ".md")}
		if info, infoErr := e.Info(); infoErr == nil {
			d.SizeBytes = info.Size()
			d.CreatedAt = info.ModTime().UTC()
		}
		if data, readErr := os.ReadFile(filepath.Join(dir, e.Name())); readErr == nil {
			meta, body := frontmatter.Parse(string(data))
			d.Author = meta.EditedBy
			d.Preview = preview(body, s.previewLen)
		}
		out = append(out, d)
	}

	// Snapshot IDs sort chronologically; newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Read returns one snapshot's exact stored bytes.
func (s *Store) Read(docID, snapshotID string) ([]byte, error) {
	dir, err := s.scope(docID)
	if err != nil {
		return nil, err
	}
	if snapshotID == "" || filepath.Base(snapshotID) != snapshotID {
		return nil, fmt.Errorf("versions: snapshot id %q: %w", snapshotID, apperr.ErrInvalidArgument)
	}
	data, err := os.ReadFile(filepath.Join(dir, snapshotID+".md"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("versions: snapshot %s/%s: %w", docID, snapshotID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("versions: read snapshot: %w", err)
	}
	return data, nil
}

// Purge deletes the entire snapshot scope of a document. It is an
// explicit cleanup operation: deleting a document does not cascade
// into its history.
func (s *Store) Purge(docID string) error {
	dir, err := s.scope(docID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("versions: purge %s: %w", docID, err)
	}
	return nil
}

// scope resolves the per-document snapshot directory, rejecting ids
// that would escape the store root.
func (s *Store) scope(docID string) (string, error) {
	if docID == "" || filepath.Base(docID) != docID || docID == "." || docID == ".." {
		return "", fmt.Errorf("versions: document id %q: %w", docID, apperr.ErrInvalidArgument)
	}
	return filepath.Join(s.root, docID), nil
}

// prune removes the oldest snapshots beyond the retention cap.
func (s *Store) prune(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.maxPerDoc {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-s.maxPerDoc] {
		if rmErr := os.Remove(filepath.Join(dir, name)); rmErr != nil {
			s.logger.Warn("versions: prune failed", slog.String("snapshot", name), slog.String("error", rmErr.Error()))
		}
	}
}

// preview collapses whitespace in body and truncates it to limit
// runes, appending an ellipsis when truncated.
func preview(body string, limit int) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return string(runes[:limit]) + "…"
}
