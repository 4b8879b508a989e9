// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/excalibur/internal/api"
	"github.com/starford/excalibur/internal/bridge"
	"github.com/starford/excalibur/internal/dialog"
	"github.com/starford/excalibur/internal/preview"
	"github.com/starford/excalibur/internal/recents"
	"github.com/starford/excalibur/internal/sse"
	"github.com/starford/excalibur/internal/storage"
	"github.com/starford/excalibur/internal/watcher"
	"github.com/starford/excalibur/internal/workspace"
)

// NewLogger builds the JSON logger used by every command.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("dialog_mode", cfg.Dialog.Mode),
		slog.String("renderer", cfg.Preview.Renderer),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := recents.Open(cfg.Data.RecentsPath())
	if err != nil {
		return fmt.Errorf("init recents: %w", err)
	}
	defer db.Close()

	dlg, err := dialog.New(cfg.Dialog.Mode, cfg.Dialog.Directory)
	if err != nil {
		return fmt.Errorf("init dialogs: %w", err)
	}

	store := storage.NewFS()
	fileBridge := bridge.New(store, dlg, db, cfg.Recents.Limit, logger)

	// SSE broker.
	broker := sse.NewBroker(sse.WithLogger(logger))
	defer broker.Close()

	compiler, err := preview.NewCompiler(cfg.Preview.Renderer, cfg.Preview.Options(), logger)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	defer compiler.Close()
	pipeline := preview.NewPipeline(compiler, broker, logger)

	fileWatcher, err := watcher.New(store, broker, logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}

	ws := workspace.New(fileBridge, pipeline,
		workspace.WithPublisher(broker),
		workspace.WithTracker(fileWatcher),
		workspace.WithLogger(logger),
	)
	if err := ws.RefreshRecents(ctx); err != nil {
		logger.Warn("initial recents load failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(ws, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Webview assets.
	if cfg.UI.Dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.UI.Dir)))
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Report external edits of the open documents.
	g.Go(func() error {
		return fileWatcher.Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// File from the launch command line. A drawing stays pending until the
	// webview attaches its canvas.
	if app.openPath != "" {
		g.Go(func() error {
			if err := ws.HandleOpenFile(gCtx, app.openPath); err != nil {
				logger.Warn("launch open failed", slog.String("path", app.openPath), slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open SSE streams only end when the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
