package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/canvas"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/scene"
)

const canvasNotReady = "The drawing canvas is not ready yet."

// AttachCanvas makes c the live drawing canvas. A file requested while no
// canvas was attached is opened now.
func (w *Workspace) AttachCanvas(ctx context.Context, c canvas.Canvas) error {
	w.logger.Debug("workspace: canvas attached")
	err := w.guard.Attach(ctx, c)
	w.publishState()
	return err
}

// DetachCanvas marks the canvas unavailable.
func (w *Workspace) DetachCanvas() {
	w.logger.Debug("workspace: canvas detached")
	w.guard.Detach()
	w.publishState()
}

// SyncCanvas records the scene the webview reports for the live canvas.
func (w *Workspace) SyncCanvas(doc scene.Document) error {
	c, ok := w.guard.Canvas()
	if !ok {
		return apperr.ErrCanvasUnavailable
	}
	s, ok := c.(Syncer)
	if !ok {
		return fmt.Errorf("workspace: canvas does not accept scene reports: %w", apperr.ErrCanvasUnavailable)
	}
	s.Sync(doc)
	return nil
}

// NewDrawing empties the canvas and forgets the drawing's path and name.
// Unsaved edits are discarded without confirmation.
func (w *Workspace) NewDrawing(context.Context) error {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	if c, ok := w.guard.Canvas(); ok {
		c.Reset()
	}
	w.mu.Lock()
	w.drawing = document{gen: w.drawing.gen + 1}
	w.status = ""
	w.tab = models.TabDrawing
	w.mu.Unlock()

	w.tracker.Untrack(models.KindDrawing)
	w.publishState()
	return nil
}

// OpenDrawing asks the user for a drawing and loads it.
func (w *Workspace) OpenDrawing(ctx context.Context) error {
	c, ok := w.guard.Canvas()
	if !ok {
		w.setStatus(canvasNotReady)
		return apperr.ErrCanvasUnavailable
	}
	resp, err := w.bridge.Open(ctx, models.KindDrawing)
	if err != nil {
		return w.fail("open", models.KindDrawing, "", err)
	}
	if resp == nil {
		return nil
	}
	w.drawMu.Lock()
	defer w.drawMu.Unlock()
	return w.applyDrawingLocked(ctx, c, resp)
}

// LoadDrawing opens the drawing at path. Without a canvas the request is
// held until one attaches; only the latest such request is kept.
func (w *Workspace) LoadDrawing(ctx context.Context, path string) error {
	opened, err := w.guard.Request(ctx, path)
	if !opened {
		w.logger.Info("workspace: canvas not ready, deferring open", slog.String("path", path))
		w.mu.Lock()
		w.tab = models.TabDrawing
		w.mu.Unlock()
		w.publishState()
	}
	return err
}

// LoadDrawingContents loads already-read file contents into the canvas.
func (w *Workspace) LoadDrawingContents(ctx context.Context, resp *models.OpenFileResponse) error {
	c, ok := w.guard.Canvas()
	if !ok {
		return apperr.ErrCanvasUnavailable
	}
	w.drawMu.Lock()
	defer w.drawMu.Unlock()
	return w.applyDrawingLocked(ctx, c, resp)
}

// openDrawingIn is the guard's open callback.
func (w *Workspace) openDrawingIn(ctx context.Context, c canvas.Canvas, path string) error {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	resp, err := w.bridge.Load(ctx, models.KindDrawing, path)
	if err != nil {
		return w.failLoad(ctx, models.KindDrawing, path, err)
	}
	return w.applyDrawingLocked(ctx, c, resp)
}

// applyDrawingLocked pushes a decoded scene into c. A file that does not
// decode leaves the canvas and the handle untouched and only sets the status.
// The caller holds drawMu, so the canvas and the handle always describe the
// same file.
func (w *Workspace) applyDrawingLocked(ctx context.Context, c canvas.Canvas, resp *models.OpenFileResponse) error {
	target := displayTarget(resp.Name, resp.Path)

	doc, err := scene.Decode([]byte(resp.Contents))
	if err != nil {
		w.logger.Warn("workspace: parse drawing failed",
			slog.String("path", resp.Path),
			slog.String("error", err.Error()))
		w.setStatus(fmt.Sprintf("Failed to open %s: the file is not a valid drawing.", target))
		return nil
	}

	c.UpdateScene(doc.Elements, doc.AppState)
	if fs, ok := c.(canvas.FileSetter); ok {
		fs.SetFiles(doc.Files)
	} else if len(doc.Files) > 0 {
		c.AddFiles(doc.Files)
	}

	w.mu.Lock()
	w.drawing = document{
		handle: models.Handle{Path: resp.Path, DisplayName: scene.StripExt(resp.Name)},
		gen:    w.drawing.gen + 1,
	}
	w.status = "Opened " + target
	w.tab = models.TabDrawing
	w.mu.Unlock()

	w.logger.Info("workspace: drawing loaded",
		slog.String("path", resp.Path),
		slog.Int("elements", len(doc.Elements)),
		slog.Int("files", len(doc.Files)))

	if resp.Path != "" {
		w.tracker.Track(models.KindDrawing, resp.Path, []byte(resp.Contents))
	}
	_ = w.RefreshRecents(ctx)
	w.publishState()
	return nil
}

// SaveDrawing serializes the live scene and writes it. A drawing without a
// path goes through the save dialog, named after its display name.
func (w *Workspace) SaveDrawing(ctx context.Context) error {
	c, ok := w.guard.Canvas()
	if !ok {
		w.setStatus(canvasNotReady)
		return apperr.ErrCanvasUnavailable
	}

	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	w.mu.Lock()
	doc := w.drawing
	w.mu.Unlock()

	data, err := scene.Encode(c.Snapshot())
	if err != nil {
		return w.fail("save", models.KindDrawing, "", err)
	}

	resp, err := w.bridge.Save(ctx, models.KindDrawing, models.SaveFileRequest{
		Path:     doc.handle.Path,
		Name:     trimmedName(doc.handle),
		Contents: string(data),
	})
	if errors.Is(err, apperr.ErrCancelled) {
		return nil
	}
	if err != nil {
		return w.fail("save", models.KindDrawing, displayTarget(doc.handle.DisplayName, doc.handle.Path), err)
	}

	w.mu.Lock()
	if w.drawing.gen == doc.gen {
		w.drawing.handle.Path = resp.Path
	}
	w.status = "Saved " + filepath.Base(resp.Path)
	w.mu.Unlock()

	w.logger.Info("workspace: drawing saved", slog.String("path", resp.Path))
	w.tracker.Track(models.KindDrawing, resp.Path, data)
	_ = w.RefreshRecents(ctx)
	w.publishState()
	return nil
}

// SetDrawingName edits the drawing's display name.
func (w *Workspace) SetDrawingName(name string) {
	w.mu.Lock()
	w.drawing.handle.DisplayName = name
	w.mu.Unlock()
	w.publishState()
}
