// Package testutil provides shared test helpers and fakes for the host's
// external collaborators.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/excalibur/internal/recents"
)

// TestRecents creates a temporary SQLite registry that is automatically
// cleaned up.
func TestRecents(t *testing.T) *recents.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "excalibur-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := recents.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
