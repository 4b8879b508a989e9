// Package workspace is the coordination layer between the file bridge, the
// drawing canvas and the diagram preview. It owns both document handles,
// the diagram text, the status line, the active tab and the recents list.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/canvas"
	"github.com/starford/excalibur/internal/diagram"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/pendingopen"
	"github.com/starford/excalibur/internal/preview"
	"github.com/starford/excalibur/internal/scene"
	"github.com/starford/excalibur/internal/sse"
)

// FileBridge performs dialogs and file I/O.
type FileBridge interface {
	Open(ctx context.Context, kind models.Kind) (*models.OpenFileResponse, error)
	Load(ctx context.Context, kind models.Kind, path string) (*models.OpenFileResponse, error)
	Save(ctx context.Context, kind models.Kind, req models.SaveFileRequest) (*models.SaveFileResponse, error)
	Recents(ctx context.Context) ([]models.RecentEntry, error)
}

// Previewer renders diagram text.
type Previewer interface {
	Begin(text string) preview.Request
	Render(ctx context.Context, req preview.Request) preview.State
	State() preview.State
}

// Tracker follows the files currently open so external edits can be
// reported. contents is what the host last loaded or saved.
type Tracker interface {
	Track(kind models.Kind, path string, contents []byte)
	Untrack(kind models.Kind)
}

// Publisher pushes state to the webview.
type Publisher interface {
	Publish(event sse.Event)
}

// Syncer is a canvas that accepts scene reports from the webview.
type Syncer interface {
	Sync(doc scene.Document)
}

// DiagramState is the diagram tab as seen by the webview.
type DiagramState struct {
	models.Handle
	Text    string        `json:"text"`
	Type    string        `json:"type,omitempty"`
	Preview preview.State `json:"preview"`
}

// State is a snapshot of the workspace.
type State struct {
	Tab         models.Tab           `json:"tab"`
	Status      string               `json:"status"`
	Drawing     models.Handle        `json:"drawing"`
	Diagram     DiagramState         `json:"diagram"`
	Recents     []models.RecentEntry `json:"recents"`
	CanvasReady bool                 `json:"canvas_ready"`
	PendingOpen string               `json:"pending_open,omitempty"`
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithPublisher sets where state changes are pushed.
func WithPublisher(pub Publisher) Option {
	return func(w *Workspace) { w.pub = pub }
}

// WithTracker sets the tracker informed of loads and saves.
func WithTracker(t Tracker) Option {
	return func(w *Workspace) { w.tracker = t }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(w *Workspace) { w.clipboard = write }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// Workspace coordinates the two documents. State is guarded by mu, which is
// never held across bridge, canvas or compiler calls. drawMu serializes
// drawing loads, saves and resets from the file read through the handle
// commit.
type Workspace struct {
	bridge    FileBridge
	preview   Previewer
	guard     *pendingopen.Guard[canvas.Canvas]
	pub       Publisher
	tracker   Tracker
	clipboard func(string) error
	logger    *slog.Logger

	drawMu sync.Mutex

	mu      sync.Mutex
	tab     models.Tab
	status  string
	drawing document
	diagram document
	text    string
	recents []models.RecentEntry
}

// document is a handle plus a counter bumped whenever a different document
// replaces it, so a slow save does not stamp its path onto a newer document.
type document struct {
	handle models.Handle
	gen    uint64
}

// New creates a workspace showing an empty drawing.
func New(bridge FileBridge, previewer Previewer, opts ...Option) *Workspace {
	w := &Workspace{
		bridge:    bridge,
		preview:   previewer,
		pub:       sse.Discard{},
		tracker:   noopTracker{},
		clipboard: clipboard.WriteAll,
		logger:    slog.Default(),
		tab:       models.TabDrawing,
		recents:   []models.RecentEntry{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.guard = pendingopen.New[canvas.Canvas](w.openDrawingIn)
	return w
}

type noopTracker struct{}

func (noopTracker) Track(models.Kind, string, []byte) {}
func (noopTracker) Untrack(models.Kind) {}

// State returns a snapshot.
func (w *Workspace) State() State {
	_, ready := w.guard.Canvas()
	pending, _ := w.guard.Pending()
	pv := w.preview.State()

	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Tab:     w.tab,
		Status:  w.status,
		Drawing: w.drawing.handle,
		Diagram: DiagramState{
			Handle:  w.diagram.handle,
			Text:    w.text,
			Type:    diagram.Parse(w.text).Type,
			Preview: pv,
		},
		Recents:     append([]models.RecentEntry(nil), w.recents...),
		CanvasReady: ready,
		PendingOpen: pending,
	}
}

func (w *Workspace) publishState() {
	w.pub.Publish(sse.Event{Type: sse.EventState, Data: w.State()})
}

func (w *Workspace) setStatus(msg string) {
	w.mu.Lock()
	w.status = msg
	w.mu.Unlock()
	w.publishState()
}

// fail records a visible status for a failed file operation.
func (w *Workspace) fail(action string, kind models.Kind, target string, err error) error {
	reason := err.Error()
	if errors.Is(err, apperr.ErrNotFound) {
		reason = "file not found"
	}
	if target == "" {
		target = string(models.TabFor(kind))
	}
	w.logger.Warn("workspace: "+action+" failed",
		slog.String("kind", string(kind)),
		slog.String("target", target),
		slog.String("error", err.Error()))
	w.setStatus(fmt.Sprintf("Failed to %s %s: %s", action, target, reason))
	return err
}

// failLoad reports a failed by-path load. A missing file has already been
// dropped from the registry, so the list is re-read.
func (w *Workspace) failLoad(ctx context.Context, kind models.Kind, path string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		_ = w.RefreshRecents(ctx)
	}
	return w.fail("open", kind, filepath.Base(path), err)
}

func displayTarget(name, path string) string {
	if name != "" {
		return name
	}
	if path != "" {
		return filepath.Base(path)
	}
	return ""
}

// RefreshRecents re-reads the registry and replaces the list wholesale.
func (w *Workspace) RefreshRecents(ctx context.Context) error {
	list, err := w.bridge.Recents(ctx)
	if err != nil {
		w.logger.Warn("workspace: list recents failed", slog.String("error", err.Error()))
		return err
	}
	if list == nil {
		list = []models.RecentEntry{}
	}
	w.mu.Lock()
	w.recents = list
	w.mu.Unlock()
	w.pub.Publish(sse.Event{Type: sse.EventRecents, Data: list})
	return nil
}

// SelectRecent opens a registry entry with the loader for its kind.
func (w *Workspace) SelectRecent(ctx context.Context, kind models.Kind, path string) error {
	switch kind {
	case models.KindDrawing:
		return w.LoadDrawing(ctx, path)
	case models.KindDiagram:
		return w.LoadDiagram(ctx, path)
	default:
		return fmt.Errorf("workspace: %w: %q", apperr.ErrInvalidKind, kind)
	}
}

// HandleOpenFile handles an external open-file signal such as a
// file-association launch. Diagram files go to the diagram tab; everything
// else is opened as a drawing once the canvas is ready.
func (w *Workspace) HandleOpenFile(ctx context.Context, path string) error {
	w.logger.Info("workspace: open-file signal", slog.String("path", path))
	if diagram.IsDiagramPath(path) {
		return w.LoadDiagram(ctx, path)
	}
	return w.LoadDrawing(ctx, path)
}

// CopyPreview copies the current preview SVG to the clipboard.
func (w *Workspace) CopyPreview(context.Context) error {
	svg := w.preview.State().SVG
	if svg == "" {
		w.setStatus("Nothing to copy yet.")
		return nil
	}
	if err := w.clipboard(svg); err != nil {
		w.logger.Warn("workspace: clipboard write failed", slog.String("error", err.Error()))
		w.setStatus("Failed to copy SVG to the clipboard.")
		return err
	}
	w.setStatus("Copied SVG to the clipboard.")
	return nil
}

func trimmedName(h models.Handle) string {
	return strings.TrimSpace(h.DisplayName)
}
