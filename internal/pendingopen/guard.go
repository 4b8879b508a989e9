// Package pendingopen resolves the race between the drawing canvas becoming
// available and an external request to open a file.
package pendingopen

import (
	"context"
	"sync"
)

// State is the guard's state.
type State int

const (
	// Idle: no path is waiting for the canvas.
	Idle State = iota
	// Armed: one path is waiting for the canvas.
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// OpenFunc loads path into canvas c.
type OpenFunc[C any] func(ctx context.Context, c C, path string) error

// Guard holds the canvas handle and at most one pending path. Every request
// is delivered to OpenFunc exactly once: immediately when a canvas is
// attached, otherwise when the next canvas attaches. A newer request
// replaces a pending one.
//
// OpenFunc is always called without the guard's lock held, so it may call
// back into the guard.
type Guard[C any] struct {
	open OpenFunc[C]

	mu       sync.Mutex
	canvas   C
	attached bool
	state    State
	pending  string
}

// New creates an idle guard with no canvas.
func New[C any](open OpenFunc[C]) *Guard[C] {
	return &Guard[C]{open: open}
}

// Request asks for path to be opened. It reports whether the open ran
// immediately (true, with the open's error) or was armed until a canvas
// attaches (false).
func (g *Guard[C]) Request(ctx context.Context, path string) (bool, error) {
	g.mu.Lock()
	if !g.attached {
		g.state = Armed
		g.pending = path
		g.mu.Unlock()
		return false, nil
	}
	c := g.canvas
	g.mu.Unlock()

	return true, g.open(ctx, c, path)
}

// Attach makes c the live canvas. A pending path is consumed and opened in
// c; the error is that open's.
func (g *Guard[C]) Attach(ctx context.Context, c C) error {
	g.mu.Lock()
	g.canvas = c
	g.attached = true
	path, armed := g.pending, g.state == Armed
	g.state = Idle
	g.pending = ""
	g.mu.Unlock()

	if !armed {
		return nil
	}
	return g.open(ctx, c, path)
}

// Detach marks the canvas unavailable. Later requests are armed again.
func (g *Guard[C]) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	var zero C
	g.canvas = zero
	g.attached = false
}

// Canvas returns the attached canvas, if any.
func (g *Guard[C]) Canvas() (C, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canvas, g.attached
}

// Pending returns the armed path, if any.
func (g *Guard[C]) Pending() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending, g.state == Armed
}

// State returns the current state.
func (g *Guard[C]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
