package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/workspace"
)

const (
	maxBodyBytes  = 10 << 20
	maxSceneBytes = 64 << 20
)

// StateResponse is the workspace snapshot returned by every mutating route.
type StateResponse = workspace.State

// RecentsResponse wraps the recents registry.
type RecentsResponse struct {
	Recents []models.RecentEntry `json:"recents" validate:"required"`
}

// PathRequest names a file by absolute path or file:// URL.
type PathRequest struct {
	Path string `json:"path" example:"/home/me/plan.excalidraw" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *PathRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required, validation.By(absoluteOrFileURL)),
	)
}

// RecentRequest selects a recents entry.
type RecentRequest struct {
	Kind models.Kind `json:"kind" example:"mermaid" validate:"required"`
	Path string      `json:"path" example:"/home/me/flow.mmd" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *RecentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind, validation.Required, validation.In(models.KindDrawing, models.KindDiagram)),
		validation.Field(&r.Path, validation.Required, validation.By(absoluteOrFileURL)),
	)
}

// NameRequest sets a display name. An empty name is allowed.
type NameRequest struct {
	Name string `json:"name" example:"Plan A"`
}

// Validate implements validation.Validatable.
func (r *NameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.RuneLength(0, 255)),
	)
}

// ImportRequest carries drawing contents the webview already read, such as
// a file dropped onto the canvas. The result is an unsaved drawing.
type ImportRequest struct {
	Name     string `json:"name" example:"plan.excalidraw"`
	Contents string `json:"contents" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.RuneLength(0, 255)),
		validation.Field(&r.Contents, validation.Required),
	)
}

// TextRequest replaces the diagram text.
type TextRequest struct {
	Text string `json:"text" example:"graph TD\nA-->B"`
}

// Validate implements validation.Validatable.
func (r *TextRequest) Validate() error {
	return nil
}

func absoluteOrFileURL(v any) error {
	s, _ := v.(string)
	if strings.HasPrefix(strings.ToLower(s), "file:") || strings.HasPrefix(s, "/") || isWindowsAbs(s) {
		return nil
	}
	return errors.New("must be an absolute path or a file:// URL")
}

func isWindowsAbs(s string) bool {
	return len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/')
}
