package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikify/internal/render"
	"github.com/starford/wikify/internal/wiki"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Build    BuildConfig       `yaml:"build"`
	Markdown MarkdownConfig    `yaml:"markdown"`
	Index    IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Markdown.Validate(); err != nil {
		return fmt.Errorf("markdown: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// BuildConfig holds the directories a build reads and writes.
type BuildConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	// Workers bounds concurrent conversions; zero means one per CPU.
	Workers int  `yaml:"workers"`
	Watch   bool `yaml:"watch"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.InputDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// MarkdownConfig holds the conversion options.
type MarkdownConfig struct {
	FilterUnsafe bool `yaml:"filter_unsafe"`
	// ValidateLinks checks links against the input directory.
	ValidateLinks   bool     `yaml:"validate"`
	SourceExtension string   `yaml:"source_extension"`
	OutputExtension string   `yaml:"output_extension"`
	Extensions      []string `yaml:"extensions"`
	UnsafeHTML      bool     `yaml:"unsafe_html"`
	HardWraps       bool     `yaml:"hard_wraps"`
	Frontmatter     bool     `yaml:"frontmatter"`
	Page            bool     `yaml:"page"`
}

var fileExtension = regexp.MustCompile(`^[^./\\]+$`)

var errUnknownExtension = errors.New("unknown markdown extension")

// Validate validates the markdown configuration.
func (c *MarkdownConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceExtension, validation.Required, validation.Match(fileExtension)),
		validation.Field(&c.OutputExtension, validation.Required, validation.Match(fileExtension)),
		validation.Field(&c.Extensions, validation.Each(validation.By(knownExtension))),
	)
}

func knownExtension(value any) error {
	name, _ := value.(string)
	if !render.IsExtension(name) {
		return fmt.Errorf("%w %q (known: %s)", errUnknownExtension, name, strings.Join(render.ExtensionNames(), ", "))
	}
	return nil
}

// RenderConfig converts the markdown settings into a pipeline configuration.
// Links are validated against the input directory when enabled.
func (c *Config) RenderConfig() render.Config {
	rc := render.Config{
		FilterUnsafe:    c.Markdown.FilterUnsafe,
		OutputExtension: c.Markdown.OutputExtension,
		SourceExtension: c.Markdown.SourceExtension,
		Extensions:      c.Markdown.Extensions,
		UnsafeHTML:      c.Markdown.UnsafeHTML,
		HardWraps:       c.Markdown.HardWraps,
		Frontmatter:     c.Markdown.Frontmatter,
	}
	if c.Markdown.ValidateLinks {
		rc.ValidationDir = c.Build.InputDir
	}
	return rc
}

// IndexConfig holds the build report database location.
type IndexConfig struct {
	// Path of the SQLite database; empty disables the build report.
	Path string `yaml:"path"`
}

// Enabled reports whether a build report is kept.
func (c *IndexConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Build: BuildConfig{
			InputDir:  ".",
			OutputDir: "wikify_output",
		},
		Markdown: MarkdownConfig{
			SourceExtension: wiki.DefaultSourceExtension,
			OutputExtension: wiki.DefaultOutputExtension,
		},
	}
}
