// Package testutil provides shared test helpers for setting up
// document directories and services.
package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/versions"
)

// TestDocs creates a temporary documents directory with a storage.FS.
func TestDocs(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestService wires a complete document service over a temporary
// directory: storage, manifest, sync engine, and version store.
func TestService(t *testing.T) (*docservice.Service, *storage.FS) {
	t.Helper()
	dir, store := TestDocs(t)
	manifest := index.NewManifest(filepath.Join(dir, index.ManifestFilename))
	engine := index.NewEngine(store, manifest, index.DefaultRules(), "📄", slog.Default())
	vstore := versions.NewStore(filepath.Join(dir, ".versions"), 0, 0, slog.Default())
	return docservice.New(store, manifest, engine, vstore, "📄"), store
}
