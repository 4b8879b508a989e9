package workspace

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/preview"
	"github.com/starford/excalibur/internal/scene"
)

// NewDiagram clears the diagram text, handle and preview.
func (w *Workspace) NewDiagram(ctx context.Context) error {
	w.mu.Lock()
	w.diagram = document{gen: w.diagram.gen + 1}
	w.text = ""
	w.status = ""
	w.tab = models.TabDiagram
	req := w.preview.Begin("")
	w.mu.Unlock()

	w.preview.Render(ctx, req)
	w.tracker.Untrack(models.KindDiagram)
	w.publishState()
	return nil
}

// OpenDiagram asks the user for a diagram and loads it.
func (w *Workspace) OpenDiagram(ctx context.Context) error {
	resp, err := w.bridge.Open(ctx, models.KindDiagram)
	if err != nil {
		return w.fail("open", models.KindDiagram, "", err)
	}
	if resp == nil {
		return nil
	}
	w.applyDiagram(ctx, resp)
	return nil
}

// LoadDiagram opens the diagram at path.
func (w *Workspace) LoadDiagram(ctx context.Context, path string) error {
	resp, err := w.bridge.Load(ctx, models.KindDiagram, path)
	if err != nil {
		return w.failLoad(ctx, models.KindDiagram, path, err)
	}
	w.applyDiagram(ctx, resp)
	return nil
}

func (w *Workspace) applyDiagram(ctx context.Context, resp *models.OpenFileResponse) {
	target := displayTarget(resp.Name, resp.Path)

	w.mu.Lock()
	w.diagram = document{
		handle: models.Handle{Path: resp.Path, DisplayName: scene.StripExt(resp.Name)},
		gen:    w.diagram.gen + 1,
	}
	w.text = resp.Contents
	w.status = "Opened " + target
	w.tab = models.TabDiagram
	req := w.preview.Begin(resp.Contents)
	w.mu.Unlock()

	w.logger.Info("workspace: diagram loaded", slog.String("path", resp.Path))
	if resp.Path != "" {
		w.tracker.Track(models.KindDiagram, resp.Path, []byte(resp.Contents))
	}
	_ = w.RefreshRecents(ctx)
	w.publishState()
	w.preview.Render(ctx, req)
}

// SaveDiagram writes the diagram text.
func (w *Workspace) SaveDiagram(ctx context.Context) error {
	w.mu.Lock()
	doc, text := w.diagram, w.text
	w.mu.Unlock()

	resp, err := w.bridge.Save(ctx, models.KindDiagram, models.SaveFileRequest{
		Path:     doc.handle.Path,
		Name:     trimmedName(doc.handle),
		Contents: text,
	})
	if errors.Is(err, apperr.ErrCancelled) {
		return nil
	}
	if err != nil {
		return w.fail("save", models.KindDiagram, displayTarget(doc.handle.DisplayName, doc.handle.Path), err)
	}

	w.mu.Lock()
	if w.diagram.gen == doc.gen {
		w.diagram.handle.Path = resp.Path
	}
	w.status = "Saved " + filepath.Base(resp.Path)
	w.mu.Unlock()

	w.logger.Info("workspace: diagram saved", slog.String("path", resp.Path))
	w.tracker.Track(models.KindDiagram, resp.Path, []byte(text))
	_ = w.RefreshRecents(ctx)
	w.publishState()
	return nil
}

// SetDiagramName edits the diagram's display name.
func (w *Workspace) SetDiagramName(name string) {
	w.mu.Lock()
	w.diagram.handle.DisplayName = name
	w.mu.Unlock()
	w.publishState()
}

// SetDiagramText replaces the diagram text and re-renders the preview.
// The text and its render generation are taken together, so the preview
// always follows the text that was stored last.
func (w *Workspace) SetDiagramText(ctx context.Context, text string) preview.State {
	w.mu.Lock()
	w.text = text
	req := w.preview.Begin(text)
	w.mu.Unlock()

	w.publishState()
	return w.preview.Render(ctx, req)
}
