// Package dialog provides the open/save file pickers used by the bridge.
package dialog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqdialog "github.com/sqweek/dialog"

	"github.com/starford/excalibur/internal/apperr"
)

// Modes accepted by New.
const (
	ModeNative    = "native"
	ModeDirectory = "directory"
)

// Filter restricts a picker to a set of file extensions (without dots).
type Filter struct {
	Name       string
	Extensions []string
}

// Dialog asks the user for a file to open or a destination to save to.
// Cancellation is reported as apperr.ErrCancelled.
type Dialog interface {
	Open(title string, f Filter) (string, error)
	Save(title string, f Filter, suggested string) (string, error)
}

// New returns the picker for mode. dir is only used by ModeDirectory.
func New(mode, dir string) (Dialog, error) {
	switch mode {
	case "", ModeNative:
		return Native{}, nil
	case ModeDirectory:
		if strings.TrimSpace(dir) == "" {
			return nil, fmt.Errorf("dialog: directory mode requires a directory")
		}
		return NewDirectory(dir), nil
	default:
		return nil, fmt.Errorf("dialog: unknown mode %q", mode)
	}
}

// Native shows the platform file pickers.
type Native struct{}

// Open shows a native open-file dialog.
func (Native) Open(title string, f Filter) (string, error) {
	path, err := sqdialog.File().Title(title).Filter(f.Name, f.Extensions...).Load()
	return nativeResult(path, err)
}

// Save shows a native save-file dialog pre-filled with suggested.
func (Native) Save(title string, f Filter, suggested string) (string, error) {
	b := sqdialog.File().Title(title).Filter(f.Name, f.Extensions...)
	if suggested != "" {
		b = b.SetStartFile(suggested)
	}
	path, err := b.Save()
	return nativeResult(path, err)
}

func nativeResult(path string, err error) (string, error) {
	if errors.Is(err, sqdialog.ErrCancelled) {
		return "", apperr.ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("dialog: %w", err)
	}
	if path == "" {
		return "", apperr.ErrCancelled
	}
	return filepath.Clean(path), nil
}

// Directory is the headless picker: there is nobody to pick a file, so Open
// always cancels, and Save places new documents in a fixed directory.
type Directory struct {
	dir string
}

// NewDirectory returns a Directory picker rooted at dir.
func NewDirectory(dir string) *Directory {
	return &Directory{dir: dir}
}

// Open reports cancellation.
func (d *Directory) Open(string, Filter) (string, error) {
	return "", apperr.ErrCancelled
}

// Save resolves suggested inside the directory, never returning the path of
// an existing file: "plan.excalidraw" becomes "plan (2).excalidraw" and so on.
func (d *Directory) Save(_ string, f Filter, suggested string) (string, error) {
	name := filepath.Base(filepath.Clean(suggested))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("dialog: no file name suggested")
	}
	if filepath.Ext(name) == "" && len(f.Extensions) > 0 {
		name += "." + f.Extensions[0]
	}
	abs, err := filepath.Abs(d.dir)
	if err != nil {
		return "", fmt.Errorf("dialog: resolve directory: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(abs, name)
	for i := 2; fileExists(candidate); i++ {
		candidate = filepath.Join(abs, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
	return candidate, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
