package internal

import (
	"io"
	"log/slog"

	"github.com/starford/wikify/internal/diag"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	sink   diag.Sink
	stdout io.Writer
	logger *slog.Logger
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithDiagnostics sets where link diagnostics are reported. Defaults to
// standard error.
func WithDiagnostics(sink diag.Sink) Option {
	return func(a *application) {
		a.sink = sink
	}
}

// WithOutput sets where command results (such as the link report) are
// printed. Defaults to standard output.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}
