// Package preview renders diagram text to SVG through an external compiler
// and keeps the latest result.
package preview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/excalibur/internal/diagram"
	"github.com/starford/excalibur/internal/sse"
)

// FailureMessage is shown when the compiler rejects the diagram text.
const FailureMessage = "Unable to render diagram. Check the syntax."

// Compiler turns diagram text into SVG markup. id is a fresh render-target
// id for every call.
type Compiler interface {
	Render(ctx context.Context, id, text string) (string, error)
}

// Publisher receives every committed preview.
type Publisher interface {
	Publish(event sse.Event)
}

// State is the current preview.
type State struct {
	SVG   string `json:"svg"`
	Error string `json:"error,omitempty"`
}

// Pipeline re-renders on every text change. Each Update takes a new
// generation; a render result is committed only while its generation is
// still the latest, so a slow render for old text never replaces the
// preview of newer text.
type Pipeline struct {
	compiler Compiler
	pub      Publisher
	logger   *slog.Logger
	newID    func() string

	mu    sync.Mutex
	gen   uint64
	state State
}

// NewPipeline creates a pipeline with an empty preview.
func NewPipeline(compiler Compiler, pub Publisher, logger *slog.Logger) *Pipeline {
	if pub == nil {
		pub = sse.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		compiler: compiler,
		pub:      pub,
		logger:   logger,
		newID:    func() string { return "mermaid-" + uuid.NewString() },
	}
}

// Request is one text change, stamped with its generation.
type Request struct {
	gen  uint64
	text string
}

// Begin registers a text change and makes it the latest generation, so any
// render still in flight becomes stale. Text that is empty after cleaning
// clears the preview immediately.
func (p *Pipeline) Begin(text string) Request {
	cleaned := diagram.Clean(text)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if cleaned == "" {
		p.state = State{}
		p.commitLocked()
	}
	return Request{gen: p.gen, text: cleaned}
}

// Render compiles the text of req and returns the preview afterwards. The
// result is committed only if req is still the latest generation. A failed
// render keeps the previous SVG and sets FailureMessage. Empty requests
// never reach the compiler.
func (p *Pipeline) Render(ctx context.Context, req Request) State {
	if req.text == "" {
		return p.State()
	}

	id := p.newID()
	svg, err := p.compiler.Render(ctx, id, req.text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if req.gen != p.gen {
		p.logger.Debug("preview: discarding stale render",
			slog.String("id", id),
			slog.Uint64("generation", req.gen))
		return p.state
	}
	if err != nil {
		p.logger.Debug("preview: render failed", slog.String("id", id), slog.String("error", err.Error()))
		p.state.Error = FailureMessage
	} else {
		p.state = State{SVG: svg}
	}
	return p.commitLocked()
}

// Update is Begin followed by Render.
func (p *Pipeline) Update(ctx context.Context, text string) State {
	return p.Render(ctx, p.Begin(text))
}

// commitLocked publishes the current state. It runs under p.mu so clients
// see commits in generation order.
func (p *Pipeline) commitLocked() State {
	p.pub.Publish(sse.Event{Type: sse.EventPreview, Data: p.state})
	return p.state
}

// State returns the current preview.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
