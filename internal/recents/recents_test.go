package recents

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/starford/excalibur/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "excalibur-recents-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTouchAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Touch(ctx, models.KindDrawing, "/docs/a.excalidraw", "a.excalidraw", 10); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := db.Touch(ctx, models.KindDiagram, "/docs/b.mmd", "", 10); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	items, err := db.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "/docs/b.mmd" || items[0].Kind != models.KindDiagram {
		t.Errorf("first = %+v, want the diagram", items[0])
	}
	if items[0].Name != "" {
		t.Errorf("name = %q, want empty", items[0].Name)
	}
	if items[1].Name != "a.excalidraw" {
		t.Errorf("name = %q", items[1].Name)
	}
	if items[1].UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestTouchDeduplicatesByPath(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_ = db.Touch(ctx, models.KindDrawing, "/docs/a.excalidraw", "a", 10)
	_ = db.Touch(ctx, models.KindDrawing, "/docs/b.excalidraw", "b", 10)
	_ = db.Touch(ctx, models.KindDrawing, "/docs/a.excalidraw", "renamed", 10)

	items, _ := db.List(ctx, 10)
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "/docs/a.excalidraw" || items[0].Name != "renamed" {
		t.Errorf("first = %+v, want refreshed a", items[0])
	}
}

func TestTouchTrimsToLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if err := db.Touch(ctx, models.KindDiagram, fmt.Sprintf("/docs/%02d.mmd", i), "", 10); err != nil {
			t.Fatalf("Touch %d: %v", i, err)
		}
	}

	items, _ := db.List(ctx, 100)
	if len(items) != MaxEntries {
		t.Fatalf("len = %d, want %d", len(items), MaxEntries)
	}
	if items[0].Path != "/docs/14.mmd" {
		t.Errorf("first = %s, want newest", items[0].Path)
	}
	if items[len(items)-1].Path != "/docs/05.mmd" {
		t.Errorf("last = %s, want /docs/05.mmd", items[len(items)-1].Path)
	}
}

func TestTouchHonoursSmallerLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = db.Touch(ctx, models.KindDrawing, fmt.Sprintf("/d/%d.excalidraw", i), "", 3)
	}
	items, _ := db.List(ctx, 10)
	if len(items) != 3 {
		t.Errorf("len = %d, want 3", len(items))
	}
}

func TestRemove(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Touch(ctx, models.KindDrawing, "/d/x.excalidraw", "", 10)
	if err := db.Remove(ctx, "/d/x.excalidraw"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := db.Remove(ctx, "/d/missing"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	items, _ := db.List(ctx, 10)
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}
