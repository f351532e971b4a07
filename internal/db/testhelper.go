package db

import (
	"path/filepath"
	"testing"
)

// TestDBPath returns the path of a fresh, migrated SQLite file inside
// t.TempDir(). No handle stays open after it returns.
func TestDBPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := Migrate(path); err != nil {
		t.Fatalf("migrate test sqlite: %v", err)
	}
	return path
}
