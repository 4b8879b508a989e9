package testutil

import (
	"sync"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/dialog"
)

// Dialog is a scripted dialog.Dialog. Empty paths mean "user cancelled".
type Dialog struct {
	mu        sync.Mutex
	OpenPath  string
	SavePath  string
	Suggested []string
	Opens     int
}

var _ dialog.Dialog = (*Dialog)(nil)

// Open returns OpenPath or apperr.ErrCancelled.
func (d *Dialog) Open(string, dialog.Filter) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Opens++
	if d.OpenPath == "" {
		return "", apperr.ErrCancelled
	}
	return d.OpenPath, nil
}

// Save records the suggested name and returns SavePath or apperr.ErrCancelled.
func (d *Dialog) Save(_ string, _ dialog.Filter, suggested string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Suggested = append(d.Suggested, suggested)
	if d.SavePath == "" {
		return "", apperr.ErrCancelled
	}
	return d.SavePath, nil
}
