// Package scene converts Excalidraw scene files to and from the values the
// drawing canvas consumes.
package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/excalibur/internal/apperr"
)

// Export format identifiers written by Encode.
const (
	ExportType    = "excalidraw"
	ExportVersion = 2
	ExportSource  = "excalibur"
)

// Element is one drawing element. Fields are kept verbatim so that
// properties this host does not know about survive a load/save cycle.
type Element map[string]any

// AppState holds canvas view state (viewport, current tool, background...).
type AppState map[string]any

// Files maps a file id to its embedded binary payload record.
type Files map[string]any

// Document is a scene: ordered elements (z-order), view state and files.
type Document struct {
	Elements []Element `json:"elements"`
	AppState AppState  `json:"appState"`
	Files    Files     `json:"files"`
}

type exportFile struct {
	Type     string    `json:"type"`
	Version  int       `json:"version"`
	Source   string    `json:"source"`
	Elements []Element `json:"elements"`
	AppState AppState  `json:"appState"`
	Files    Files     `json:"files"`
}

var bom = []byte("\xef\xbb\xbf")

// Decode parses a scene file. It accepts both the top-level shape and the
// legacy {"data": {...}} wrapper, and repairs every element.
// Errors wrap apperr.ErrMalformed.
func Decode(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, bom)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return Document{}, fmt.Errorf("scene: %w: %v", apperr.ErrMalformed, err)
	}
	if dec.More() {
		return Document{}, fmt.Errorf("scene: %w: trailing data after JSON value", apperr.ErrMalformed)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("scene: %w: top-level value is not an object", apperr.ErrMalformed)
	}

	payload := selectPayload(obj)
	doc := Document{
		Elements: toElements(payload["elements"]),
		AppState: toMap[AppState](payload["appState"]),
		Files:    toMap[Files](payload["files"]),
	}
	RepairAll(doc.Elements)
	return doc, nil
}

// selectPayload picks which object carries the scene: the nested "data"
// wrapper when it is an object with an elements array, else the root.
func selectPayload(root map[string]any) map[string]any {
	if data, ok := root["data"].(map[string]any); ok {
		if _, ok := data["elements"].([]any); ok {
			return data
		}
	}
	return root
}

func toElements(v any) []Element {
	raw, _ := v.([]any)
	out := make([]Element, 0, len(raw))
	for _, item := range raw {
		if el, ok := item.(map[string]any); ok {
			out = append(out, Element(el))
		}
	}
	return out
}

func toMap[M ~map[string]any](v any) M {
	if m, ok := v.(map[string]any); ok {
		return M(m)
	}
	return M{}
}

// Repair makes el safe for the canvas: groupIds always becomes an array,
// while boundElements is only normalised when present (non-arrays become
// null) and stays absent when missing. Repair is idempotent.
func Repair(el Element) Element {
	if _, ok := el["groupIds"].([]any); !ok {
		el["groupIds"] = []any{}
	}
	if v, present := el["boundElements"]; present && v != nil {
		if _, ok := v.([]any); !ok {
			el["boundElements"] = nil
		}
	}
	return el
}

// RepairAll repairs every element in place.
func RepairAll(elements []Element) {
	for _, el := range elements {
		Repair(el)
	}
}

// Encode serializes doc in the versioned export format read by Decode.
// Only files referenced by a live element are written.
func Encode(doc Document) ([]byte, error) {
	out := exportFile{
		Type:     ExportType,
		Version:  ExportVersion,
		Source:   ExportSource,
		Elements: doc.Elements,
		AppState: doc.AppState,
		Files:    ReferencedFiles(doc.Elements, doc.Files),
	}
	if out.Elements == nil {
		out.Elements = []Element{}
	}
	if out.AppState == nil {
		out.AppState = AppState{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("scene: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// ReferencedFiles returns the entries of files whose id is the fileId of a
// non-deleted element.
func ReferencedFiles(elements []Element, files Files) Files {
	out := Files{}
	for _, el := range elements {
		if deleted, _ := el["isDeleted"].(bool); deleted {
			continue
		}
		id, _ := el["fileId"].(string)
		if f, ok := files[id]; ok && id != "" {
			out[id] = f
		}
	}
	return out
}

// StripExt returns the base name of name without its final extension.
func StripExt(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
