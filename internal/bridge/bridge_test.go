package bridge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/storage"
	"github.com/starford/excalibur/internal/testutil"
)

func testBridge(t *testing.T) (*Bridge, *testutil.Dialog, string) {
	t.Helper()
	dir := t.TempDir()
	dlg := &testutil.Dialog{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b := New(storage.NewFS(), dlg, testutil.TestRecents(t), 10, logger)
	return b, dlg, dir
}

func TestLoadRecordsRecent(t *testing.T) {
	b, _, dir := testBridge(t)
	ctx := context.Background()
	path := filepath.Join(dir, "flow.mmd")
	_ = os.WriteFile(path, []byte("graph TD\nA-->B"), 0o644)

	resp, err := b.Load(ctx, models.KindDiagram, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resp.Path != path || resp.Name != "flow.mmd" || resp.Contents != "graph TD\nA-->B" {
		t.Errorf("resp = %+v", resp)
	}

	items, _ := b.Recents(ctx)
	if len(items) != 1 || items[0].Kind != models.KindDiagram || items[0].Name != "flow.mmd" {
		t.Errorf("recents = %+v", items)
	}
}

func TestLoadMissingFile(t *testing.T) {
	b, _, dir := testBridge(t)
	_, err := b.Load(context.Background(), models.KindDrawing, filepath.Join(dir, "gone.excalidraw"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	items, _ := b.Recents(context.Background())
	if len(items) != 0 {
		t.Errorf("failed load should not touch recents: %+v", items)
	}
}

func TestLoadMissingFileDropsRecent(t *testing.T) {
	b, _, dir := testBridge(t)
	ctx := context.Background()
	kept := filepath.Join(dir, "kept.mmd")
	gone := filepath.Join(dir, "gone.mmd")
	_ = os.WriteFile(kept, []byte("pie"), 0o644)
	_ = os.WriteFile(gone, []byte("pie"), 0o644)
	_, _ = b.Load(ctx, models.KindDiagram, gone)
	_, _ = b.Load(ctx, models.KindDiagram, kept)
	_ = os.Remove(gone)

	if _, err := b.Load(ctx, models.KindDiagram, gone); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	items, _ := b.Recents(ctx)
	if len(items) != 1 || items[0].Path != kept {
		t.Errorf("recents = %+v, want only %s", items, kept)
	}
}

func TestInvalidKind(t *testing.T) {
	b, _, _ := testBridge(t)
	if _, err := b.Load(context.Background(), models.Kind("svg"), "/tmp/x.svg"); !errors.Is(err, apperr.ErrInvalidKind) {
		t.Errorf("err = %v, want ErrInvalidKind", err)
	}
}

func TestOpenCancelledReturnsNil(t *testing.T) {
	b, dlg, _ := testBridge(t)
	resp, err := b.Open(context.Background(), models.KindDrawing)
	if err != nil || resp != nil {
		t.Errorf("resp = %+v, err = %v; want nil, nil", resp, err)
	}
	if dlg.Opens != 1 {
		t.Errorf("dialog opens = %d", dlg.Opens)
	}
}

func TestOpenReadsChosenFile(t *testing.T) {
	b, dlg, dir := testBridge(t)
	path := filepath.Join(dir, "scene.excalidraw")
	_ = os.WriteFile(path, []byte(`{"elements":[]}`), 0o644)
	dlg.OpenPath = path

	resp, err := b.Open(context.Background(), models.KindDrawing)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if resp == nil || resp.Path != path {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSaveExistingPath(t *testing.T) {
	b, dlg, dir := testBridge(t)
	path := filepath.Join(dir, "existing.mmd")

	resp, err := b.Save(context.Background(), models.KindDiagram, models.SaveFileRequest{Path: path, Contents: "graph LR"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if resp.Path != path {
		t.Errorf("path = %q", resp.Path)
	}
	if len(dlg.Suggested) != 0 {
		t.Error("dialog should not be shown when a path is known")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "graph LR" {
		t.Errorf("contents = %q", data)
	}
	items, _ := b.Recents(context.Background())
	if len(items) != 1 || items[0].Name != "existing.mmd" {
		t.Errorf("recents = %+v", items)
	}
}

func TestSaveNewDocumentUsesDialog(t *testing.T) {
	b, dlg, dir := testBridge(t)
	dlg.SavePath = filepath.Join(dir, "chosen", "Plan A.excalidraw")

	resp, err := b.Save(context.Background(), models.KindDrawing, models.SaveFileRequest{Name: "Plan A", Contents: "{}"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if resp.Path != dlg.SavePath {
		t.Errorf("path = %q, want %q", resp.Path, dlg.SavePath)
	}
	if len(dlg.Suggested) != 1 || dlg.Suggested[0] != "Plan A.excalidraw" {
		t.Errorf("suggested = %v", dlg.Suggested)
	}
	items, _ := b.Recents(context.Background())
	if len(items) != 1 || items[0].Name != "Plan A" {
		t.Errorf("recents = %+v", items)
	}
}

func TestSaveCancelled(t *testing.T) {
	b, dlg, _ := testBridge(t)
	_, err := b.Save(context.Background(), models.KindDiagram, models.SaveFileRequest{Contents: "graph TD"})
	if !errors.Is(err, apperr.ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
	if len(dlg.Suggested) != 1 || dlg.Suggested[0] != "diagram.mmd" {
		t.Errorf("suggested = %v, want default diagram.mmd", dlg.Suggested)
	}
}

func TestSuggestedName(t *testing.T) {
	drawing := kinds[models.KindDrawing]
	diagram := kinds[models.KindDiagram]
	cases := []struct {
		spec kindSpec
		name string
		want string
	}{
		{drawing, "", "drawing.excalidraw"},
		{drawing, "   ", "drawing.excalidraw"},
		{drawing, "Plan A", "Plan A.excalidraw"},
		{drawing, "plan.json", "plan.json"},
		{drawing, "a/b", "a-b.excalidraw"},
		{diagram, "", "diagram.mmd"},
		{diagram, "notes.md", "notes.md"},
		{diagram, "v1.2", "v1.2.mmd"},
	}
	for _, tc := range cases {
		if got := suggestedName(tc.spec, tc.name); got != tc.want {
			t.Errorf("suggestedName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
