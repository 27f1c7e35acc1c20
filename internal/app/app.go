package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/probe"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader *decl.Loader

	fs        afero.Fs
	toolchain probe.Toolchain
}

// Option customizes an App.
type Option func(*App)

// WithFs replaces the filesystem artifacts are written to.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithToolchain replaces the toolchain probes run against.
func WithToolchain(tc probe.Toolchain) Option {
	return func(a *App) { a.toolchain = tc }
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger writing to logW; the human report goes to outW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: decl.NewLoader(),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// openToolchain returns the configured toolchain and a function releasing
// it. Recorded facts take precedence over the host compiler.
func (a *App) openToolchain(ctx context.Context) (probe.Toolchain, func(), error) {
	logger := ctxlog.FromContext(ctx)
	if a.toolchain != nil {
		return a.toolchain, func() {}, nil
	}

	if a.config.ProbeFacts != "" {
		f, err := os.Open(a.config.ProbeFacts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open probe facts: %w", err)
		}
		defer f.Close()
		tc, err := probe.LoadFacts(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", a.config.ProbeFacts, err)
		}
		logger.Debug("Using recorded probe facts.", "path", a.config.ProbeFacts)
		return tc, func() {}, nil
	}

	tc, err := probe.NewCCToolchain(a.config.CompilerCommand, envLookup(a.config.Environ))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Using host compiler.", "compiler", tc.Compiler())
	return tc, func() {
		if err := tc.Close(); err != nil {
			logger.Warn("Failed to remove probe scratch directory.", "error", err)
		}
	}, nil
}

// envLookup resolves variables from a KEY=VALUE list, falling back to the
// process environment when the list is empty.
func envLookup(environ []string) func(string) string {
	if len(environ) == 0 {
		return os.Getenv
	}
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return func(name string) string { return vars[name] }
}
