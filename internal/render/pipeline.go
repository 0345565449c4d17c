// Package render assembles the goldmark pipeline that turns one wiki
// Markdown document into HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/starford/wikify/internal/diag"
	"github.com/starford/wikify/internal/parser"
	"github.com/starford/wikify/internal/wiki"
)

// Config enumerates the options a Pipeline recognises. It is copied at
// construction and never changes afterwards.
type Config struct {
	// FilterUnsafe drops content outside %%% regions.
	FilterUnsafe bool
	// ValidationDir enables link validation against the files it holds.
	ValidationDir string
	// OutputExtension is appended to wiki-link targets ("html" when empty).
	OutputExtension string
	// SourceExtension is used to resolve wiki targets during validation
	// ("md" when empty).
	SourceExtension string
	// Extensions names optional goldmark extensions, see ExtensionNames.
	Extensions []string
	// UnsafeHTML passes raw HTML through instead of omitting it.
	UnsafeHTML bool
	HardWraps  bool
	// Frontmatter strips leading frontmatter before parsing.
	Frontmatter bool
}

func (c Config) withDefaults() Config {
	if c.OutputExtension == "" {
		c.OutputExtension = wiki.DefaultOutputExtension
	}
	if c.SourceExtension == "" {
		c.SourceExtension = wiki.DefaultSourceExtension
	}
	c.Extensions = append([]string(nil), c.Extensions...)
	return c
}

// Result is the outcome of converting one document.
type Result struct {
	HTML []byte
	// Title is the frontmatter title, else the text of the first level one
	// heading, else empty.
	Title string
	// References lists every link the validator checked, in document order.
	References []wiki.Reference
}

// Broken returns the references that could not be resolved.
func (r *Result) Broken() []wiki.Reference {
	var out []wiki.Reference
	for _, ref := range r.References {
		if !ref.Resolved {
			out = append(out, ref)
		}
	}
	return out
}

// Pipeline converts wiki Markdown to HTML. It holds no per-document state
// and is safe for concurrent use.
type Pipeline struct {
	cfg   Config
	md    goldmark.Markdown
	files *wiki.FileSet
	sink  diag.Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets where validation diagnostics go. Defaults to stderr.
func WithSink(sink diag.Sink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// New builds a pipeline. The validation directory, if any, is listed once
// here and never again.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = diag.Stderr()
	}

	extenders, err := collectExtensions(p.cfg.Extensions)
	if err != nil {
		return nil, err
	}
	extenders = append(extenders,
		wiki.NewLinkExtension(p.cfg.OutputExtension),
		wiki.NewSafeExtension(p.cfg.FilterUnsafe),
	)
	if p.cfg.ValidationDir != "" {
		files, err := wiki.LoadFileSet(p.cfg.ValidationDir, p.sink)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		p.files = files
		extenders = append(extenders, wiki.NewValidateExtension(
			files, p.cfg.ValidationDir, p.cfg.SourceExtension, p.sink))
	}

	var rendererOptions []renderer.Option
	if p.cfg.UnsafeHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	if p.cfg.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	p.md = goldmark.New(
		goldmark.WithExtensions(extenders...),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Files returns the validation file set, or nil when validation is off.
func (p *Pipeline) Files() *wiki.FileSet {
	return p.files
}

// Render converts source and returns the HTML only.
func (p *Pipeline) Render(source []byte) ([]byte, error) {
	res, err := p.Convert(source)
	if err != nil {
		return nil, err
	}
	return res.HTML, nil
}

// Convert converts source and reports the title and checked references.
func (p *Pipeline) Convert(source []byte) (*Result, error) {
	body := source
	var title string
	if p.cfg.Frontmatter {
		fm := parser.Parse(source)
		body, title = fm.Body, fm.Title
	}

	pc := gparser.NewContext()
	doc := p.md.Parser().Parse(text.NewReader(body), gparser.WithContext(pc))

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if title == "" {
		title = headingTitle(doc, body)
	}
	return &Result{
		HTML:       buf.Bytes(),
		Title:      title,
		References: wiki.References(pc),
	}, nil
}

func headingTitle(doc ast.Node, source []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return string(bytes.TrimSpace(h.Text(source)))
		}
	}
	return ""
}
