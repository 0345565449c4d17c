// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wikify/internal/apperr"
	"github.com/starford/wikify/internal/build"
	"github.com/starford/wikify/internal/diag"
	"github.com/starford/wikify/internal/index"
	"github.com/starford/wikify/internal/render"
	"github.com/starford/wikify/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.sink == nil {
		app.sink = diag.Stderr()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.logger == nil {
		app.logger = newLogger(&app.config.App)
	}
	return app, nil
}

func newLogger(cfg *ApplicationConfig) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}

// Run converts the input directory into the output directory. In watch
// mode it keeps rebuilding on changes until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("input_dir", cfg.Build.InputDir),
		slog.String("output_dir", cfg.Build.OutputDir),
		slog.Bool("filter_unsafe", cfg.Markdown.FilterUnsafe),
		slog.Bool("validate", cfg.Markdown.ValidateLinks),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	src, err := storage.NewFS(cfg.Build.InputDir)
	if err != nil {
		return fmt.Errorf("init input: %w", err)
	}
	out, err := storage.EnsureFS(cfg.Build.OutputDir)
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}

	var buildOpts []build.Option
	buildOpts = append(buildOpts, build.WithLogger(logger))
	if cfg.Index.Enabled() {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()
		buildOpts = append(buildOpts, build.WithIndex(db))
	}

	rebuild := func(ctx context.Context) error {
		_, err := app.build(ctx, src, out, false, buildOpts...)
		return err
	}

	if err := rebuild(ctx); err != nil {
		return err
	}
	if !cfg.Build.Watch {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		ignore := append([]string{out.Root()}, app.generated()...)
		return build.Watch(gCtx, src.Root(), ignore, logger, rebuild)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Watcher stopped")
	return nil
}

// build constructs a fresh pipeline, so the validation file set reflects
// the input directory as it is now, and runs one build.
func (app *application) build(ctx context.Context, src, out storage.Provider, dryRun bool, opts ...build.Option) (*build.Summary, error) {
	cfg := app.config
	rc := cfg.RenderConfig()
	if dryRun {
		rc.ValidationDir = src.Root()
	}
	pipeline, err := render.New(rc, render.WithSink(app.sink))
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	if files := pipeline.Files(); files != nil {
		app.logger.Debug("validating links",
			slog.String("dir", rc.ValidationDir),
			slog.Int("files", files.Len()))
	}
	b, err := build.New(build.Config{
		SourceExtension: cfg.Markdown.SourceExtension,
		OutputExtension: cfg.Markdown.OutputExtension,
		Workers:         cfg.Build.Workers,
		Page:            cfg.Markdown.Page,
		DryRun:          dryRun,
		Exclude:         app.generated(),
	}, pipeline, src, out, opts...)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx)
}

// generated lists files the application itself writes that may sit in the
// input directory.
func (app *application) generated() []string {
	if !app.config.Index.Enabled() {
		return nil
	}
	return index.Files(app.config.Index.Path)
}

// Check renders every document in memory with link validation on and
// writes nothing. It returns an error wrapping apperr.ErrDiagnostics when
// any link could not be resolved.
func Check(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	src, err := storage.NewFS(app.config.Build.InputDir)
	if err != nil {
		return fmt.Errorf("init input: %w", err)
	}
	sum, err := app.build(ctx, src, nil, true, build.WithLogger(app.logger))
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("check: %d file(s) could not be converted", sum.Failed)
	}
	if sum.Diagnostics > 0 {
		return fmt.Errorf("check: %d broken link(s): %w", sum.Diagnostics, apperr.ErrDiagnostics)
	}
	return nil
}

// Report prints the broken links recorded by the last build.
func Report(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if !cfg.Index.Enabled() {
		return errors.New("report: index.path is not configured")
	}
	if _, err := os.Stat(cfg.Index.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("report: %s: %w", cfg.Index.Path, apperr.ErrNotFound)
		}
		return fmt.Errorf("report: %w", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	return writeReport(app, db)
}

func writeReport(app *application, db index.BuildIndex) error {
	docs, err := db.Documents()
	if err != nil {
		return err
	}
	broken, err := db.Broken()
	if err != nil {
		return err
	}

	if len(broken) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("SOURCE", "KIND", "REFERENCE", "PATH")
		for _, l := range broken {
			t.Row(l.Source, l.Kind, l.Reference, l.ResolvedPath)
		}
		if _, err := fmt.Fprintln(app.stdout, t.Render()); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(app.stdout, "%d document(s), %d broken link(s)\n", len(docs), len(broken))
	return err
}
