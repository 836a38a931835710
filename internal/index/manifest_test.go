package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
)

func tempManifest(t *testing.T) *Manifest {
	t.Helper()
	return NewManifest(filepath.Join(t.TempDir(), ManifestFilename))
}

func entry(filename, title string) Entry {
	now := time.Now().UTC()
	return Entry{
		Filename:  filename,
		Title:     title,
		Emoji:     "📄",
		Category:  CategoryReference,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	m := tempManifest(t)
	entries, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty", entries)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m := tempManifest(t)
	in := []Entry{entry("a.md", "A"), entry("b.md", "B")}
	if err := m.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].Filename != "a.md" || out[1].Filename != "b.md" {
		t.Errorf("out = %+v", out)
	}
}

func TestUpsert_PrependsNew(t *testing.T) {
	m := tempManifest(t)
	_ = m.Upsert(entry("old.md", "Old"))
	_ = m.Upsert(entry("new.md", "New"))

	entries, _ := m.Load()
	if len(entries) != 2 || entries[0].Filename != "new.md" {
		t.Errorf("entries = %+v, want new.md first", entries)
	}
}

func TestUpsert_ReplacesInPlace(t *testing.T) {
	m := tempManifest(t)
	_ = m.Upsert(entry("a.md", "A"))
	_ = m.Upsert(entry("b.md", "B"))

	e := entry("a.md", "A Revised")
	_ = m.Upsert(e)

	entries, _ := m.Load()
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	// a.md keeps its position (second, since b.md was prepended after it).
	if entries[1].Filename != "a.md" || entries[1].Title != "A Revised" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRemove(t *testing.T) {
	m := tempManifest(t)
	_ = m.Upsert(entry("a.md", "A"))
	if err := m.Remove("a.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	entries, _ := m.Load()
	if len(entries) != 0 {
		t.Errorf("entries = %+v", entries)
	}
	// Idempotent.
	if err := m.Remove("a.md"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestPatch(t *testing.T) {
	m := tempManifest(t)
	_ = m.Upsert(entry("a.md", "A"))

	title := "Renamed"
	cat := CategorySecurity
	patched, err := m.Patch("a.md", PatchFields{Title: &title, Category: &cat})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Title != "Renamed" || patched.Category != CategorySecurity {
		t.Errorf("patched = %+v", patched)
	}
	if patched.Emoji != "📄" {
		t.Errorf("untouched field changed: %q", patched.Emoji)
	}
}

func TestPatch_UnknownIsNotFound(t *testing.T) {
	m := tempManifest(t)
	title := "X"
	if _, err := m.Patch("nope.md", PatchFields{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTouch(t *testing.T) {
	m := tempManifest(t)
	e := entry("a.md", "A")
	e.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	_ = m.Upsert(e)

	if err := m.Touch("a.md"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	entries, _ := m.Load()
	if !entries[0].UpdatedAt.After(e.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v", entries[0].UpdatedAt)
	}

	if err := m.Touch("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_SkipsWriteWhenUnchanged(t *testing.T) {
	m := tempManifest(t)
	_, err := m.Update(func(entries []Entry) ([]Entry, bool, error) {
		return entries, false, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, statErr := os.Stat(m.path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("manifest written despite changed=false")
	}
}

func TestManifestWireFormat(t *testing.T) {
	m := tempManifest(t)
	_ = m.Save([]Entry{entry("a.md", "A")})

	data, err := os.ReadFile(m.path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	for _, want := range []string{`"documents"`, `"filename"`, `"title"`, `"emoji"`, `"category"`, `"created_at"`, `"updated_at"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("manifest missing %s: %s", want, data)
		}
	}
}
