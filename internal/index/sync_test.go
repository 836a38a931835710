package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/dagaz/internal/storage"
)

func testEngine(t *testing.T) (*Engine, *storage.FS, *Manifest) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	manifest := NewManifest(filepath.Join(dir, ManifestFilename))
	engine := NewEngine(store, manifest, nil, "📄", nil)
	return engine, store, manifest
}

func TestReconcile_Discovery(t *testing.T) {
	engine, store, _ := testEngine(t)
	_ = store.Write("weekly-report.md", []byte("# Weekly Report\n\nBody.\n"))

	entries, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Filename != "weekly-report.md" {
		t.Errorf("filename = %q", e.Filename)
	}
	if e.Title != "Weekly Report" {
		t.Errorf("title = %q", e.Title)
	}
	if e.Category != CategoryReport {
		t.Errorf("category = %q, want %q", e.Category, CategoryReport)
	}
	if e.Emoji != "📄" {
		t.Errorf("emoji = %q", e.Emoji)
	}

	// Discovery must not disturb the file.
	if ok, _ := store.Exists("weekly-report.md"); !ok {
		t.Error("file removed by discovery")
	}
}

func TestReconcile_FrontmatterWins(t *testing.T) {
	engine, store, _ := testEngine(t)
	raw := "---\ntitle: \"Custom Title\"\nemoji: \"🔒\"\ncategory: \"Security\"\n---\n# Something Else\n"
	_ = store.Write("doc.md", []byte(raw))

	entries, _ := engine.Reconcile()
	e := entries[0]
	if e.Title != "Custom Title" || e.Emoji != "🔒" || e.Category != CategorySecurity {
		t.Errorf("entry = %+v", e)
	}
}

func TestReconcile_FilenameFallback(t *testing.T) {
	engine, store, _ := testEngine(t)
	_ = store.Write("meeting_notes-2024.md", []byte("no heading here\n"))

	entries, _ := engine.Reconcile()
	if entries[0].Title != "meeting notes 2024" {
		t.Errorf("title = %q", entries[0].Title)
	}
	if entries[0].Category != DefaultCategory {
		t.Errorf("category = %q", entries[0].Category)
	}
}

func TestReconcile_RemovesStaleEntries(t *testing.T) {
	engine, store, _ := testEngine(t)
	_ = store.Write("gone.md", []byte("# Gone\n"))
	if _, err := engine.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// Delete directly from disk, bypassing the service.
	if err := os.Remove(filepath.Join(store.Root(), "gone.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	entries, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want empty", entries)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	engine, store, manifest := testEngine(t)
	_ = store.Write("a.md", []byte("# A\n"))
	_ = store.Write("b.md", []byte("# B\n"))

	first, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	before, err := os.ReadFile(manifest.path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	second, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	after, err := os.ReadFile(manifest.path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	if string(before) != string(after) {
		t.Error("manifest rewritten despite no filesystem change")
	}
	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReconcile_NoWriteOnEmptyDir(t *testing.T) {
	engine, _, manifest := testEngine(t)
	if _, err := engine.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, err := os.Stat(manifest.path); !os.IsNotExist(err) {
		t.Error("manifest created despite nothing to record")
	}
}

func TestReconcile_IndexMatchesDisk(t *testing.T) {
	engine, store, _ := testEngine(t)
	_ = store.Write("one.md", []byte("# One\n"))
	_ = store.Write("two.md", []byte("# Two\n"))
	if _, err := engine.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	_ = store.Write("three.md", []byte("# Three\n"))
	_ = os.Remove(filepath.Join(store.Root(), "one.md"))

	entries, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	files, _ := store.List()
	if len(entries) != len(files) {
		t.Fatalf("index/disk mismatch: %d entries, %d files", len(entries), len(files))
	}
	indexed := make(map[string]bool)
	for _, e := range entries {
		indexed[e.Filename] = true
	}
	for _, f := range files {
		if !indexed[f] {
			t.Errorf("file %s missing from index", f)
		}
	}
}

func TestReconcile_UnreadableFileStillIndexed(t *testing.T) {
	engine, store, _ := testEngine(t)
	path := filepath.Join(store.Root(), "locked-notes.md")
	if err := os.WriteFile(path, []byte("secret"), 0o000); err != nil {
		t.Fatalf("write: %v", err)
	}
	if os.Getuid() == 0 {
		t.Skip("running as root, cannot provoke permission errors")
	}

	entries, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "locked notes" {
		t.Errorf("entries = %+v", entries)
	}
}
