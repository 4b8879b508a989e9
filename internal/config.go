package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/excalibur/internal/dialog"
	"github.com/starford/excalibur/internal/preview"
	"github.com/starford/excalibur/internal/recents"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultPort is the local port of the host API.
const DefaultPort = 7341

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Data    DataConfig        `yaml:"data"`
	Recents RecentsConfig     `yaml:"recents"`
	Dialog  DialogConfig      `yaml:"dialog"`
	Preview PreviewConfig     `yaml:"preview"`
	Auth    AuthConfig        `yaml:"auth"`
	UI      UIConfig          `yaml:"ui"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []validation.Validatable{
		&c.App, &c.Data, &c.Recents, &c.Dialog, &c.Preview, &c.Auth,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP listen address. The host API only binds the
// loopback interface.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the application data directory.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// RecentsPath is the recents registry database inside the data directory.
func (c *DataConfig) RecentsPath() string {
	return filepath.Join(c.Dir, "recents.db")
}

// RecentsConfig bounds the recents registry.
type RecentsConfig struct {
	Limit int `yaml:"limit"`
}

// Validate validates the recents configuration.
func (c *RecentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Limit, validation.Required, validation.Min(1), validation.Max(recents.MaxEntries)),
	)
}

// DialogConfig selects the file picker.
//
// Mode "native" uses the platform dialogs. Mode "directory" is headless:
// saves go into Directory and open dialogs report cancellation.
type DialogConfig struct {
	Mode      string `yaml:"mode"`
	Directory string `yaml:"directory"`
}

// Validate validates the dialog configuration.
func (c *DialogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(dialog.ModeNative, dialog.ModeDirectory)),
		validation.Field(&c.Directory, validation.When(c.Mode == dialog.ModeDirectory, validation.Required)),
	)
}

// PreviewConfig configures the diagram renderer.
type PreviewConfig struct {
	Renderer   string        `yaml:"renderer"`
	MermaidURL string        `yaml:"mermaid_url"`
	Timeout    time.Duration `yaml:"timeout"`
	ChromePath string        `yaml:"chrome_path"`
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Renderer, validation.Required, validation.In(preview.RendererChrome, preview.RendererDisabled)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Options converts the section into compiler options.
func (c *PreviewConfig) Options() preview.Options {
	return preview.Options{
		MermaidURL: c.MermaidURL,
		Timeout:    c.Timeout,
		ChromePath: c.ChromePath,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// UIConfig points at the built webview assets. An empty Dir serves no UI.
type UIConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultDataDir is <UserConfigDir>/excalibur, or the working directory when
// the user config directory is unknown.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "excalibur")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: DefaultPort,
			},
		},
		Data: DataConfig{
			Dir: DefaultDataDir(),
		},
		Recents: RecentsConfig{
			Limit: recents.MaxEntries,
		},
		Dialog: DialogConfig{
			Mode: dialog.ModeNative,
		},
		Preview: PreviewConfig{
			Renderer:   preview.RendererChrome,
			MermaidURL: preview.DefaultMermaidURL,
			Timeout:    10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
