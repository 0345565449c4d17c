// Package build converts a directory of wiki Markdown into a directory of
// HTML, copying every other file along.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/wikify/internal/checksum"
	"github.com/starford/wikify/internal/index"
	"github.com/starford/wikify/internal/models"
	"github.com/starford/wikify/internal/render"
	"github.com/starford/wikify/internal/storage"
	"github.com/starford/wikify/internal/wiki"
)

// Config controls a Builder.
type Config struct {
	// SourceExtension selects the files that are rendered, case-insensitively.
	SourceExtension string
	// OutputExtension names rendered files.
	OutputExtension string
	// Workers bounds concurrent conversions; zero means runtime.NumCPU.
	Workers int
	// Page wraps every fragment in a standalone HTML document.
	Page bool
	// DryRun renders in memory and writes nothing.
	DryRun bool
	// Exclude lists paths inside the input directory that are neither
	// rendered nor copied, such as the build report database.
	Exclude []string
}

// Summary describes one build.
type Summary struct {
	Rendered int
	Copied   int
	Failed   int
	// Changed counts rendered documents whose source differs from the
	// previous recorded build. Always equal to Rendered without an index.
	Changed int
	// Diagnostics counts unresolved references across all documents.
	Diagnostics int
	Duration    time.Duration
}

// Builder runs batch conversions. It holds no per-run state and can be
// run repeatedly, which watch mode relies on.
type Builder struct {
	cfg      Config
	pipeline *render.Pipeline
	src      storage.Provider
	out      storage.Provider
	index    index.BuildIndex
	logger   *slog.Logger
	exclude  map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithIndex records every build into idx.
func WithIndex(idx index.BuildIndex) Option {
	return func(b *Builder) {
		b.index = idx
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder reading from src and writing to out. out may be nil
// when cfg.DryRun is set.
// Empty extensions default to the ones the pipeline links with.
func New(cfg Config, pipeline *render.Pipeline, src, out storage.Provider, opts ...Option) (*Builder, error) {
	if pipeline == nil || src == nil {
		return nil, fmt.Errorf("build: pipeline and source are required")
	}
	if cfg.SourceExtension == "" {
		cfg.SourceExtension = pipeline.Config().SourceExtension
	}
	if cfg.OutputExtension == "" {
		cfg.OutputExtension = pipeline.Config().OutputExtension
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if out == nil && !cfg.DryRun {
		return nil, fmt.Errorf("build: output is required")
	}

	b := &Builder{cfg: cfg, pipeline: pipeline, src: src, out: out, exclude: pathSet(cfg.Exclude)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b, nil
}

// outcome is what happened to one input file.
type outcome struct {
	file     models.SourceFile
	rendered bool
	copied   bool
	failed   bool
	output   string
	sum      string
	result   *render.Result
}

// Run performs one full build. Per-file failures are logged and counted;
// the returned error is reserved for failures that stop the whole build.
func (b *Builder) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	files, err := b.inputs()
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcomes[i] = b.process(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	sum := &Summary{}
	for _, o := range outcomes {
		switch {
		case o.failed:
			sum.Failed++
		case o.rendered:
			sum.Rendered++
			sum.Diagnostics += len(o.result.Broken())
		case o.copied:
			sum.Copied++
		}
	}

	if b.index != nil && !b.cfg.DryRun {
		changed, err := b.record(outcomes)
		if err != nil {
			return nil, err
		}
		sum.Changed = changed
	} else {
		sum.Changed = sum.Rendered
	}

	sum.Duration = time.Since(start)
	b.logger.Info("build finished",
		slog.Int("rendered", sum.Rendered),
		slog.Int("copied", sum.Copied),
		slog.Int("failed", sum.Failed),
		slog.Int("diagnostics", sum.Diagnostics),
		slog.Duration("duration", sum.Duration))
	return sum, nil
}

// inputs lists the input directory without excluded paths.
func (b *Builder) inputs() ([]models.SourceFile, error) {
	all, err := b.src.List()
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	files := all[:0]
	for _, f := range all {
		if _, skip := b.exclude[b.srcPath(f.Name)]; skip {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func (b *Builder) isSource(f models.SourceFile) bool {
	return f.HasExt(b.cfg.SourceExtension)
}

func (b *Builder) process(f models.SourceFile) outcome {
	if b.isSource(f) {
		return b.renderFile(f)
	}
	return b.copyFile(f)
}

func (b *Builder) renderFile(f models.SourceFile) outcome {
	o := outcome{file: f, output: f.Stem() + "." + b.cfg.OutputExtension}
	log := b.logger.With(slog.String("source", f.Name), slog.String("output", o.output))

	if !b.cfg.DryRun {
		b.logger.Info(fmt.Sprintf("render '%s' to '%s'", b.srcPath(f.Name), b.outPath(o.output)))
	}

	data, err := b.src.Read(f.Name)
	if err != nil {
		log.Error("read failed", slog.String("error", err.Error()))
		o.failed = true
		return o
	}
	o.sum = checksum.Sum(data)

	res, err := b.pipeline.Convert(data)
	if err != nil {
		log.Error("convert failed", slog.String("error", err.Error()))
		o.failed = true
		return o
	}
	o.result = res
	o.rendered = true
	if b.cfg.DryRun {
		return o
	}

	html := res.HTML
	if b.cfg.Page {
		title := res.Title
		if title == "" {
			title = f.Stem()
		}
		if html, err = render.WrapPage(title, res.HTML); err != nil {
			log.Error("wrap failed", slog.String("error", err.Error()))
			o.rendered, o.failed = false, true
			return o
		}
	}
	if err := b.out.Write(o.output, html); err != nil {
		log.Error("write failed", slog.String("error", err.Error()))
		o.rendered, o.failed = false, true
	}
	return o
}

func (b *Builder) copyFile(f models.SourceFile) outcome {
	o := outcome{file: f, output: f.Name}
	if b.cfg.DryRun {
		return o
	}
	b.logger.Info(fmt.Sprintf("copy '%s' to '%s'", b.srcPath(f.Name), b.outPath(f.Name)))

	r, err := b.src.Open(f.Name)
	if err != nil {
		b.logger.Error("open failed", slog.String("source", f.Name), slog.String("error", err.Error()))
		o.failed = true
		return o
	}
	defer r.Close()
	if err := b.out.WriteFrom(f.Name, r); err != nil {
		b.logger.Error("copy failed", slog.String("source", f.Name), slog.String("error", err.Error()))
		o.failed = true
		return o
	}
	o.copied = true
	return o
}

// record stores rendered documents in the index and prunes the ones whose
// source is gone. It returns how many documents changed since the last
// recorded build.
func (b *Builder) record(outcomes []outcome) (int, error) {
	previous, err := b.index.AllPaths()
	if err != nil {
		return 0, fmt.Errorf("build: %w", err)
	}

	present := make(map[string]struct{}, len(outcomes))
	changed := 0
	for _, o := range outcomes {
		if !b.isSource(o.file) {
			continue
		}
		// A failed document keeps its previous record.
		present[o.file.Name] = struct{}{}
		if !o.rendered {
			continue
		}

		old, err := b.index.GetChecksum(o.file.Name)
		if err != nil {
			return 0, fmt.Errorf("build: %w", err)
		}
		if old != o.sum {
			changed++
			b.logger.Debug("document changed",
				slog.String("source", o.file.Name),
				slog.String("checksum", checksum.Short(o.sum)))
		}

		doc := index.DocumentRow{
			Path:     o.file.Name,
			Output:   o.output,
			Title:    o.result.Title,
			Checksum: o.sum,
		}
		if err := b.index.RecordDocument(doc, linkRows(o.file.Name, o.result.References)); err != nil {
			return 0, fmt.Errorf("build: %w", err)
		}
	}

	for p := range previous {
		if _, ok := present[p]; ok {
			continue
		}
		if err := b.index.DeleteDocument(p); err != nil {
			return 0, fmt.Errorf("build: %w", err)
		}
		b.logger.Debug("pruned document", slog.String("source", p))
	}
	return changed, nil
}

func linkRows(source string, refs []wiki.Reference) []index.LinkRow {
	rows := make([]index.LinkRow, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, index.LinkRow{
			Source:       source,
			Reference:    r.Text,
			ResolvedPath: r.Path,
			Kind:         string(r.Kind),
			OK:           r.Resolved,
		})
	}
	return rows
}

func (b *Builder) srcPath(name string) string {
	return filepath.Join(b.src.Root(), name)
}

func (b *Builder) outPath(name string) string {
	return filepath.Join(b.out.Root(), name)
}
