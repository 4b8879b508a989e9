// Package bridge implements the native file bridge: open/save dialogs,
// direct path loads and the recents registry.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/excalibur/internal/apperr"
	"github.com/starford/excalibur/internal/diagram"
	"github.com/starford/excalibur/internal/dialog"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/storage"
)

// RecentStore is the persistence behind the recents registry.
type RecentStore interface {
	Touch(ctx context.Context, kind models.Kind, path, name string, limit int) error
	List(ctx context.Context, limit int) ([]models.RecentEntry, error)
	Remove(ctx context.Context, path string) error
}

type kindSpec struct {
	filter      dialog.Filter
	defaultFile string
	openTitle   string
	saveTitle   string
}

var kinds = map[models.Kind]kindSpec{
	models.KindDrawing: {
		filter:      dialog.Filter{Name: "Excalidraw", Extensions: []string{"excalidraw", "json"}},
		defaultFile: "drawing.excalidraw",
		openTitle:   "Open drawing",
		saveTitle:   "Save drawing",
	},
	models.KindDiagram: {
		filter:      dialog.Filter{Name: "Mermaid", Extensions: diagram.Extensions},
		defaultFile: "diagram.mmd",
		openTitle:   "Open diagram",
		saveTitle:   "Save diagram",
	},
}

// Bridge performs file I/O on behalf of the workspace.
type Bridge struct {
	store   storage.Provider
	dialogs dialog.Dialog
	recents RecentStore
	limit   int
	logger  *slog.Logger
}

// New creates a Bridge. limit bounds the recents registry.
func New(store storage.Provider, dialogs dialog.Dialog, recents RecentStore, limit int, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: store, dialogs: dialogs, recents: recents, limit: limit, logger: logger}
}

func specFor(kind models.Kind) (kindSpec, error) {
	spec, ok := kinds[kind]
	if !ok {
		return kindSpec{}, fmt.Errorf("bridge: %w: %q", apperr.ErrInvalidKind, kind)
	}
	return spec, nil
}

// Open shows the open dialog for kind and reads the chosen file.
// A cancelled dialog returns (nil, nil).
func (b *Bridge) Open(ctx context.Context, kind models.Kind) (*models.OpenFileResponse, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("bridge: opening file dialog", slog.String("kind", string(kind)))
	path, err := b.dialogs.Open(spec.openTitle, spec.filter)
	if errors.Is(err, apperr.ErrCancelled) {
		b.logger.Debug("bridge: open dialog cancelled", slog.String("kind", string(kind)))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.Load(ctx, kind, path)
}

// Load reads the file at path and records it in the registry. A path that
// no longer exists is dropped from the registry.
func (b *Bridge) Load(ctx context.Context, kind models.Kind, path string) (*models.OpenFileResponse, error) {
	if _, err := specFor(kind); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	data, err := b.store.Read(path)
	if err != nil {
		b.logger.Warn("bridge: read failed", slog.String("path", path), slog.String("error", err.Error()))
		if errors.Is(err, os.ErrNotExist) {
			b.forget(ctx, path)
			return nil, fmt.Errorf("bridge: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	name := filepath.Base(path)
	b.logger.Debug("bridge: read file",
		slog.String("path", path),
		slog.Int("bytes", len(data)))

	b.touch(ctx, kind, path, name)
	return &models.OpenFileResponse{
		Path:     path,
		Name:     name,
		Contents: string(data),
	}, nil
}

// Save writes req.Contents. Without a path the save dialog is shown,
// pre-filled from req.Name; cancelling it returns apperr.ErrCancelled.
func (b *Bridge) Save(ctx context.Context, kind models.Kind, req models.SaveFileRequest) (*models.SaveFileResponse, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}

	path := req.Path
	if path == "" {
		path, err = b.dialogs.Save(spec.saveTitle, spec.filter, suggestedName(spec, req.Name))
		if err != nil {
			if errors.Is(err, apperr.ErrCancelled) {
				b.logger.Debug("bridge: save dialog cancelled", slog.String("kind", string(kind)))
			}
			return nil, err
		}
	}
	path = filepath.Clean(path)

	if err := b.store.Write(path, []byte(req.Contents)); err != nil {
		b.logger.Warn("bridge: write failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = filepath.Base(path)
	}
	b.logger.Debug("bridge: wrote file", slog.String("path", path), slog.Int("bytes", len(req.Contents)))
	b.touch(ctx, kind, path, name)
	return &models.SaveFileResponse{Path: path}, nil
}

// Recents returns the registry, most recently used first.
func (b *Bridge) Recents(ctx context.Context) ([]models.RecentEntry, error) {
	return b.recents.List(ctx, b.limit)
}

func (b *Bridge) touch(ctx context.Context, kind models.Kind, path, name string) {
	if err := b.recents.Touch(ctx, kind, path, name, b.limit); err != nil {
		b.logger.Warn("bridge: update recents failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func (b *Bridge) forget(ctx context.Context, path string) {
	if err := b.recents.Remove(ctx, path); err != nil {
		b.logger.Warn("bridge: remove recent failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// suggestedName builds the save-dialog file name from a display name.
func suggestedName(spec kindSpec, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return spec.defaultFile
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, allowed := range spec.filter.Extensions {
		if strings.EqualFold(ext, allowed) {
			return name
		}
	}
	return name + "." + spec.filter.Extensions[0]
}
