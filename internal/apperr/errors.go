// Package apperr holds the sentinel errors shared across the host.
package apperr

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrCancelled           = errors.New("cancelled")
	ErrMalformed           = errors.New("malformed document")
	ErrCanvasUnavailable   = errors.New("canvas unavailable")
	ErrInvalidKind         = errors.New("invalid document kind")
	ErrRendererUnavailable = errors.New("diagram renderer unavailable")
)
