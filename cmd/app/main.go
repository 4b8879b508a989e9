package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/excalibur/internal"
	"github.com/starford/excalibur/internal/launch"
	"github.com/starford/excalibur/internal/mcpserver"
	"github.com/starford/excalibur/internal/recents"
	"github.com/starford/excalibur/internal/storage"
	pkgconfig "github.com/starford/excalibur/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// firstPath returns the first launch argument that resolves to a path.
// Later arguments are ignored, as with a single file-association launch.
func firstPath(args []string) string {
	for _, arg := range args {
		p, err := launch.PathFromArg(arg)
		if err != nil {
			slog.Warn("ignoring launch argument", slog.String("arg", arg), slog.String("error", err.Error()))
			continue
		}
		return p
	}
	return ""
}

// start hands path to a running instance when there is one, and otherwise
// becomes the instance.
func start(ctx context.Context, cfg *internal.Config, path string) error {
	base := launch.BaseURL(cfg.App.HTTP.Port)
	if path != "" && launch.Running(ctx, base) {
		if err := launch.Forward(ctx, base, cfg.Auth.Token, path); err != nil {
			return fmt.Errorf("forward %s: %w", path, err)
		}
		return nil
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithOpenPath(path),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return start(ctx, cfg, firstPath(cmd.Args().Slice()))
}

func runOpen(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("open: expected exactly one path")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := launch.PathFromArg(cmd.Args().First())
	if err != nil {
		return err
	}
	return start(ctx, cfg, path)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the MCP transport.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel})))

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := recents.Open(cfg.Data.RecentsPath())
	if err != nil {
		return fmt.Errorf("init recents: %w", err)
	}
	defer db.Close()

	base := launch.BaseURL(cfg.App.HTTP.Port)
	forward := func(ctx context.Context, path string) error {
		return launch.Forward(ctx, base, cfg.Auth.Token, path)
	}

	srv := mcpserver.New(storage.NewFS(), db, forward, cfg.Recents.Limit)
	return srv.ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:      "excalibur",
		Usage:     "Desktop host for Excalidraw drawings and Mermaid diagrams",
		ArgsUsage: "[path]",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "open",
				Usage:     "Open a file in the running instance, starting one if needed",
				ArgsUsage: "<path>",
				Action:    runOpen,
			},
			{
				Name:   "mcp",
				Usage:  "Serve drawings, diagrams and recents over MCP on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
