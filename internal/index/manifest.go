// Package index maintains the document index manifest and keeps it
// reconciled against the documents directory.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/apperr"
)

// ManifestFilename is the on-disk name of the index manifest.
const ManifestFilename = "documents-index.json"

// Entry is one document's denormalized display metadata.
type Entry struct {
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Emoji     string    `json:"emoji"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PatchFields are the optional metadata fields a patch may change.
type PatchFields struct {
	Title    *string
	Emoji    *string
	Category *string
}

type manifestFile struct {
	Documents []Entry `json:"documents"`
}

// Manifest is the persisted document index. The manifest file is a
// single logical resource read-modify-written as a whole; a mutex
// serializes every such cycle so concurrent writers cannot silently
// drop each other's changes.
type Manifest struct {
	path string
	mu   sync.Mutex
}

// NewManifest creates a manifest store persisted at path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path}
}

// Load reads the persisted manifest. A missing file is an empty
// manifest, not an error.
func (m *Manifest) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Save atomically overwrites the persisted manifest with the full
// list.
func (m *Manifest) Save(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(entries)
}

// Update runs one read-modify-write cycle under the manifest lock.
// fn receives the current entries and returns the new list plus
// whether anything changed; the manifest is persisted only when it
// did. The resulting entries are returned either way.
func (m *Manifest) Update(fn func(entries []Entry) ([]Entry, bool, error)) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		return nil, err
	}
	next, changed, err := fn(entries)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := m.save(next); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Upsert inserts entry or replaces the entry with the same filename.
// New entries are prepended, matching discovery order semantics.
func (m *Manifest) Upsert(e Entry) error {
	_, err := m.Update(func(entries []Entry) ([]Entry, bool, error) {
		for i := range entries {
			if entries[i].Filename == e.Filename {
				entries[i] = e
				return entries, true, nil
			}
		}
		return append([]Entry{e}, entries...), true, nil
	})
	return err
}

// Remove drops the entry with the given filename. Removing an
// unknown filename is a no-op.
func (m *Manifest) Remove(filename string) error {
	_, err := m.Update(func(entries []Entry) ([]Entry, bool, error) {
		for i := range entries {
			if entries[i].Filename == filename {
				return append(entries[:i], entries[i+1:]...), true, nil
			}
		}
		return entries, false, nil
	})
	return err
}

// Patch applies the given fields to the named entry and bumps its
// updated timestamp. Unknown filenames fail with ErrNotFound.
func (m *Manifest) Patch(filename string, fields PatchFields) (*Entry, error) {
	var patched Entry
	_, err := m.Update(func(entries []Entry) ([]Entry, bool, error) {
		for i := range entries {
			if entries[i].Filename != filename {
				continue
			}
			if fields.Title != nil {
				entries[i].Title = *fields.Title
			}
			if fields.Emoji != nil {
				entries[i].Emoji = *fields.Emoji
			}
			if fields.Category != nil {
				entries[i].Category = *fields.Category
			}
			entries[i].UpdatedAt = time.Now().UTC()
			patched = entries[i]
			return entries, true, nil
		}
		return nil, false, fmt.Errorf("index: patch %s: %w", filename, apperr.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &patched, nil
}

// Touch bumps the named entry's updated timestamp. Unknown filenames
// fail with ErrNotFound.
func (m *Manifest) Touch(filename string) error {
	_, err := m.Update(func(entries []Entry) ([]Entry, bool, error) {
		for i := range entries {
			if entries[i].Filename == filename {
				entries[i].UpdatedAt = time.Now().UTC()
				return entries, true, nil
			}
		}
		return nil, false, fmt.Errorf("index: touch %s: %w", filename, apperr.ErrNotFound)
	})
	return err
}

func (m *Manifest) load() ([]Entry, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("index: read manifest: %w", err)
	}
	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("index: decode manifest: %w", err)
	}
	if mf.Documents == nil {
		mf.Documents = []Entry{}
	}
	return mf.Documents, nil
}

func (m *Manifest) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(manifestFile{Documents: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("index: encode manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dagaz-tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("index: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("index: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("index: close temp: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		return fmt.Errorf("index: rename: %w", err)
	}
	success = true
	return nil
}
