package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrCompile is returned by Compiler for texts registered with FailOn.
var ErrCompile = errors.New("parse error on line 1: unexpected token")

// RenderCall is one recorded Compiler.Render invocation.
type RenderCall struct {
	ID   string
	Text string
}

// Compiler is a controllable preview.Compiler. Rendering text produces
// "<svg>text</svg>"; renders of blocked texts wait for their release.
type Compiler struct {
	mu      sync.Mutex
	calls   []RenderCall
	blocks  map[string]chan struct{}
	fail    map[string]bool
	started chan string
}

// NewCompiler creates an unblocked compiler.
func NewCompiler() *Compiler {
	return &Compiler{
		blocks:  make(map[string]chan struct{}),
		fail:    make(map[string]bool),
		started: make(chan string, 64),
	}
}

// Block makes renders of text wait until the returned release is called.
func (c *Compiler) Block(text string) (release func()) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.blocks[text] = ch
	c.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// FailOn makes renders of text fail with ErrCompile.
func (c *Compiler) FailOn(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[text] = true
}

// Started receives the text of every render as it begins.
func (c *Compiler) Started() <-chan string {
	return c.started
}

// Calls returns the recorded renders.
func (c *Compiler) Calls() []RenderCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RenderCall(nil), c.calls...)
}

// Render implements preview.Compiler.
func (c *Compiler) Render(ctx context.Context, id, text string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, RenderCall{ID: id, Text: text})
	block := c.blocks[text]
	fail := c.fail[text]
	c.mu.Unlock()

	select {
	case c.started <- text:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", ErrCompile
	}
	return "<svg>" + text + "</svg>", nil
}
