package testutil

import (
	"sync"

	"github.com/starford/excalibur/internal/canvas"
	"github.com/starford/excalibur/internal/scene"
)

// Canvas is an in-memory canvas.Canvas that counts the calls it receives.
type Canvas struct {
	mu       sync.Mutex
	doc      scene.Document
	Updates  int
	FileAdds int
	Resets   int
}

var _ canvas.Canvas = (*Canvas)(nil)

// NewCanvas creates a canvas holding doc.
func NewCanvas(doc scene.Document) *Canvas {
	return &Canvas{doc: doc}
}

// UpdateScene implements canvas.Canvas.
func (c *Canvas) UpdateScene(elements []scene.Element, appState scene.AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Updates++
	c.doc.Elements = elements
	c.doc.AppState = appState
}

// AddFiles implements canvas.Canvas.
func (c *Canvas) AddFiles(files scene.Files) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FileAdds++
	if c.doc.Files == nil {
		c.doc.Files = scene.Files{}
	}
	for k, v := range files {
		c.doc.Files[k] = v
	}
}

// Reset implements canvas.Canvas.
func (c *Canvas) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Resets++
	c.doc = scene.Document{}
}

// Snapshot implements canvas.Canvas.
func (c *Canvas) Snapshot() scene.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Counts returns the update, file and reset call counts.
func (c *Canvas) Counts() (updates, fileAdds, resets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Updates, c.FileAdds, c.Resets
}
