// Package canvas adapts the drawing canvas that lives in the webview.
package canvas

import (
	"maps"
	"slices"
	"sync"

	"github.com/starford/excalibur/internal/scene"
	"github.com/starford/excalibur/internal/sse"
)

// Canvas is the subset of the drawing canvas API the workspace drives.
type Canvas interface {
	// UpdateScene replaces the elements and view state.
	UpdateScene(elements []scene.Element, appState scene.AppState)
	// AddFiles registers embedded binary files.
	AddFiles(files scene.Files)
	// Reset clears the canvas to an empty scene.
	Reset()
	// Snapshot returns the live elements, view state and files.
	Snapshot() scene.Document
}

// FileSetter is a canvas whose file set can be replaced wholesale, so files
// of a previously loaded drawing do not linger.
type FileSetter interface {
	SetFiles(files scene.Files)
}

// Publisher delivers commands to the webview.
type Publisher interface {
	Publish(event sse.Event)
}

// Mirror is the host side of a canvas running in the webview. The webview
// reports its scene through Sync; commands from the host update the mirror
// and are pushed to the webview as events.
type Mirror struct {
	pub Publisher

	mu  sync.Mutex
	doc scene.Document
}

var (
	_ Canvas     = (*Mirror)(nil)
	_ FileSetter = (*Mirror)(nil)
)

// NewMirror creates an empty mirror publishing to pub.
func NewMirror(pub Publisher) *Mirror {
	if pub == nil {
		pub = sse.Discard{}
	}
	return &Mirror{pub: pub, doc: emptyDocument()}
}

func emptyDocument() scene.Document {
	return scene.Document{
		Elements: []scene.Element{},
		AppState: scene.AppState{},
		Files:    scene.Files{},
	}
}

type replacePayload struct {
	Elements []scene.Element `json:"elements"`
	AppState scene.AppState  `json:"appState"`
}

type filesPayload struct {
	Files   scene.Files `json:"files"`
	Replace bool        `json:"replace,omitempty"`
}

// UpdateScene implements Canvas.
func (m *Mirror) UpdateScene(elements []scene.Element, appState scene.AppState) {
	if elements == nil {
		elements = []scene.Element{}
	}
	if appState == nil {
		appState = scene.AppState{}
	}
	m.mu.Lock()
	m.doc.Elements = elements
	m.doc.AppState = appState
	m.mu.Unlock()

	m.pub.Publish(sse.Event{
		Type: sse.EventSceneReplace,
		Data: replacePayload{Elements: elements, AppState: appState},
	})
}

// AddFiles implements Canvas. Files are merged into the existing set.
func (m *Mirror) AddFiles(files scene.Files) {
	if len(files) == 0 {
		return
	}
	m.mu.Lock()
	maps.Copy(m.doc.Files, files)
	m.mu.Unlock()

	m.pub.Publish(sse.Event{Type: sse.EventSceneFiles, Data: filesPayload{Files: files}})
}

// SetFiles replaces the file set. The webview is told to drop files it
// holds that are not in files.
func (m *Mirror) SetFiles(files scene.Files) {
	next := maps.Clone(files)
	if next == nil {
		next = scene.Files{}
	}
	m.mu.Lock()
	m.doc.Files = next
	m.mu.Unlock()

	m.pub.Publish(sse.Event{Type: sse.EventSceneFiles, Data: filesPayload{Files: next, Replace: true}})
}

// Reset implements Canvas.
func (m *Mirror) Reset() {
	m.mu.Lock()
	m.doc = emptyDocument()
	m.mu.Unlock()

	m.pub.Publish(sse.Event{Type: sse.EventSceneReset, Data: struct{}{}})
}

// Sync records the scene reported by the webview without echoing it back.
func (m *Mirror) Sync(doc scene.Document) {
	next := emptyDocument()
	if doc.Elements != nil {
		next.Elements = doc.Elements
	}
	if doc.AppState != nil {
		next.AppState = doc.AppState
	}
	if doc.Files != nil {
		next.Files = doc.Files
	}
	m.mu.Lock()
	m.doc = next
	m.mu.Unlock()
}

// Snapshot implements Canvas.
func (m *Mirror) Snapshot() scene.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scene.Document{
		Elements: slices.Clone(m.doc.Elements),
		AppState: maps.Clone(m.doc.AppState),
		Files:    maps.Clone(m.doc.Files),
	}
}
