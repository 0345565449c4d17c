// Package testutil provides shared test helpers for setting up source trees
// and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/wikify/internal/index"
	"github.com/starford/wikify/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "wikify-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSourceDir creates a temporary input directory holding files (name to
// content) and returns it with a storage.Provider rooted there.
func TestSourceDir(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestOutputDir returns a storage.Provider over a fresh empty directory.
func TestOutputDir(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.EnsureFS(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}
