// Package storagetest opens migrated SQLite stores for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/storage"
)

// URL returns a sqlite DATABASE_URL pointing into a fresh temp directory.
func URL(t testing.TB) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), "fintrack.db")
}

// New returns a migrated store that is closed when the test ends.
func New(t testing.TB) *storage.Store {
	t.Helper()
	url := URL(t)
	if err := storage.RunMigrations(url); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	store, err := storage.Open(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
