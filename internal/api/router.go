package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/excalibur/internal/canvas"
	"github.com/starford/excalibur/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// pub receives the commands of canvases attached through POST /canvas.
func NewRouter(ws *workspace.Workspace, pub canvas.Publisher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ws, pub)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/state", h.State)

	// Recents and external open-file signals.
	r.Get("/recents", h.Recents)
	r.Post("/recents/open", h.OpenRecent)
	r.Post("/open-file", h.OpenFile)

	// Drawing canvas lifecycle.
	r.Post("/canvas", h.AttachCanvas)
	r.Delete("/canvas", h.DetachCanvas)
	r.Put("/canvas/scene", h.SyncScene)

	r.Route("/drawing", func(r chi.Router) {
		r.Post("/new", h.NewDrawing)
		r.Post("/open", h.OpenDrawing)
		r.Post("/load", h.LoadDrawing)
		r.Post("/import", h.ImportDrawing)
		r.Post("/save", h.SaveDrawing)
		r.Put("/name", h.RenameDrawing)
	})

	r.Route("/diagram", func(r chi.Router) {
		r.Post("/new", h.NewDiagram)
		r.Post("/open", h.OpenDiagram)
		r.Post("/load", h.LoadDiagram)
		r.Post("/save", h.SaveDiagram)
		r.Put("/name", h.RenameDiagram)
		r.Put("/text", h.SetDiagramText)
		r.Post("/preview/copy", h.CopyPreview)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
