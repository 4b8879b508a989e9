package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	openPath string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOpenPath queues the file passed on the command line. It is delivered
// as an open-file signal once the host is serving.
func WithOpenPath(path string) Option {
	return func(a *application) {
		a.openPath = path
	}
}
