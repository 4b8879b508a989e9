// Package models defines the domain types shared by the bridge, the
// workspace and the HTTP API.
package models

import "time"

// Kind tags a document as a drawing or a diagram. The wire values are the
// ones persisted in the recents registry.
type Kind string

const (
	KindDrawing Kind = "excalidraw"
	KindDiagram Kind = "mermaid"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindDrawing || k == KindDiagram
}

// Tab is the active view of the single window.
type Tab string

const (
	TabDrawing Tab = "drawing"
	TabDiagram Tab = "diagram"
)

// TabFor returns the view that displays documents of kind k.
func TabFor(k Kind) Tab {
	if k == KindDiagram {
		return TabDiagram
	}
	return TabDrawing
}

// Handle is the on-disk identity of an open document.
// An empty Path means the document has never been saved.
type Handle struct {
	Path        string `json:"path,omitempty"`
	DisplayName string `json:"display_name"`
}

// RecentEntry is one row of the recents registry.
type RecentEntry struct {
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path"`
	Name      string    `json:"name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenFileResponse is returned by the bridge for dialog and by-path loads.
type OpenFileResponse struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	Contents string `json:"contents"`
}

// SaveFileRequest asks the bridge to persist contents. Empty Path lets the
// bridge ask for a destination; empty Name lets it pick a default.
type SaveFileRequest struct {
	Path     string `json:"path,omitempty"`
	Name     string `json:"name,omitempty"`
	Contents string `json:"contents"`
}

// SaveFileResponse carries the final path chosen for a save.
type SaveFileResponse struct {
	Path string `json:"path"`
}
