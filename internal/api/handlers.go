package api

import (
	"context"
	"io"
	"net/http"
	"path/filepath"

	"github.com/starford/excalibur/internal/canvas"
	"github.com/starford/excalibur/internal/launch"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/scene"
	"github.com/starford/excalibur/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws  *workspace.Workspace
	pub canvas.Publisher
}

// NewHandler creates a new Handler.
func NewHandler(ws *workspace.Workspace, pub canvas.Publisher) *Handler {
	return &Handler{ws: ws, pub: pub}
}

// run executes a workspace operation and answers with the resulting state.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ws.State())
}

// State handles GET /api/state.
//
//	@Summary		Current workspace state
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.State())
}

// Recents handles GET /api/recents. The registry is re-read on every call.
//
//	@Summary		List recent files, most recently used first
//	@Tags			recents
//	@Produce		json
//	@Success		200	{object}	RecentsResponse
//	@Security		BearerAuth
//	@Router			/recents [get]
func (h *Handler) Recents(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.RefreshRecents(r.Context()); err != nil {
		writeError(w, "list recents", err)
		return
	}
	writeJSON(w, http.StatusOK, RecentsResponse{Recents: h.ws.State().Recents})
}

// OpenRecent handles POST /api/recents/open.
//
//	@Summary		Open a recent entry with the loader for its kind
//	@Tags			recents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RecentRequest	true	"Entry to open"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recents/open [post]
func (h *Handler) OpenRecent(w http.ResponseWriter, r *http.Request) {
	var req RecentRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}
	path, err := launch.PathFromArg(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.run(w, r, "open recent", func(ctx context.Context) error {
		return h.ws.SelectRecent(ctx, req.Kind, path)
	})
}

// OpenFile handles POST /api/open-file, the open-file signal sent by
// file-association launches.
//
//	@Summary		Deliver an open-file signal
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"File to open"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/open-file [post]
func (h *Handler) OpenFile(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	h.run(w, r, "open file", func(ctx context.Context) error {
		return h.ws.HandleOpenFile(ctx, path)
	})
}

// AttachCanvas handles POST /api/canvas, sent when the webview's drawing
// canvas becomes ready. A file requested earlier is loaded into it now.
func (h *Handler) AttachCanvas(w http.ResponseWriter, r *http.Request) {
	m := canvas.NewMirror(h.pub)
	h.run(w, r, "attach canvas", func(ctx context.Context) error {
		return h.ws.AttachCanvas(ctx, m)
	})
}

// DetachCanvas handles DELETE /api/canvas.
func (h *Handler) DetachCanvas(w http.ResponseWriter, _ *http.Request) {
	h.ws.DetachCanvas()
	writeJSON(w, http.StatusOK, h.ws.State())
}

// SyncScene handles PUT /api/canvas/scene: the webview reports the live
// scene so saves serialize what the user sees.
//
//	@Summary		Report the live drawing scene
//	@Tags			canvas
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/canvas/scene [put]
func (h *Handler) SyncScene(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSceneBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	doc, err := scene.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid scene"))
		return
	}
	if err := h.ws.SyncCanvas(doc); err != nil {
		writeError(w, "sync scene", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NewDrawing handles POST /api/drawing/new.
func (h *Handler) NewDrawing(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "new drawing", h.ws.NewDrawing)
}

// OpenDrawing handles POST /api/drawing/open. A cancelled dialog is not an
// error.
func (h *Handler) OpenDrawing(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "open drawing", h.ws.OpenDrawing)
}

// LoadDrawing handles POST /api/drawing/load.
//
//	@Summary		Load a drawing by path
//	@Tags			drawing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Drawing to load"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drawing/load [post]
func (h *Handler) LoadDrawing(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	h.run(w, r, "load drawing", func(ctx context.Context) error {
		return h.ws.LoadDrawing(ctx, path)
	})
}

// ImportDrawing handles POST /api/drawing/import.
//
//	@Summary		Load drawing contents read by the webview
//	@Tags			drawing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Drawing contents"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drawing/import [post]
func (h *Handler) ImportDrawing(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeBody(w, r, maxSceneBytes, &req) {
		return
	}
	name := req.Name
	if name != "" {
		name = filepath.Base(name)
	}
	h.run(w, r, "import drawing", func(ctx context.Context) error {
		return h.ws.LoadDrawingContents(ctx, &models.OpenFileResponse{
			Name:     name,
			Contents: req.Contents,
		})
	})
}

// SaveDrawing handles POST /api/drawing/save.
func (h *Handler) SaveDrawing(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "save drawing", h.ws.SaveDrawing)
}

// RenameDrawing handles PUT /api/drawing/name.
func (h *Handler) RenameDrawing(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}
	h.ws.SetDrawingName(req.Name)
	writeJSON(w, http.StatusOK, h.ws.State())
}

// NewDiagram handles POST /api/diagram/new.
func (h *Handler) NewDiagram(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "new diagram", h.ws.NewDiagram)
}

// OpenDiagram handles POST /api/diagram/open.
func (h *Handler) OpenDiagram(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "open diagram", h.ws.OpenDiagram)
}

// LoadDiagram handles POST /api/diagram/load.
func (h *Handler) LoadDiagram(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	h.run(w, r, "load diagram", func(ctx context.Context) error {
		return h.ws.LoadDiagram(ctx, path)
	})
}

// SaveDiagram handles POST /api/diagram/save.
func (h *Handler) SaveDiagram(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "save diagram", h.ws.SaveDiagram)
}

// RenameDiagram handles PUT /api/diagram/name.
func (h *Handler) RenameDiagram(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}
	h.ws.SetDiagramName(req.Name)
	writeJSON(w, http.StatusOK, h.ws.State())
}

// SetDiagramText handles PUT /api/diagram/text. The response carries the
// preview rendered for this text, or the newer one if the text changed again
// meanwhile.
//
//	@Summary		Replace the diagram text and re-render the preview
//	@Tags			diagram
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Diagram text"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diagram/text [put]
func (h *Handler) SetDiagramText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}
	h.ws.SetDiagramText(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, h.ws.State())
}

// CopyPreview handles POST /api/diagram/preview/copy.
func (h *Handler) CopyPreview(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "copy preview", h.ws.CopyPreview)
}

func decodePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PathRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return "", false
	}
	path, err := launch.PathFromArg(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return "", false
	}
	return path, true
}
