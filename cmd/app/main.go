package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wikify/internal"
	"github.com/starford/wikify/internal/apperr"
	pkgconfig "github.com/starford/wikify/pkg/config"
)

const defaultConfigPath = "wikify.yaml"

// loadConfig reads the config file, then applies flags and the optional
// input_dir argument on top of it. A missing default config file is fine;
// a missing file named explicitly is not.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")

	var err error
	if cmd.IsSet("config") {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dir := cmd.Args().First(); dir != "" {
		cfg.Build.InputDir = dir
	}
	if cmd.IsSet("out") {
		cfg.Build.OutputDir = cmd.String("out")
	}
	if cmd.IsSet("workers") {
		cfg.Build.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("watch") {
		cfg.Build.Watch = cmd.Bool("watch")
	}
	if cmd.IsSet("filter-unsafe") {
		cfg.Markdown.FilterUnsafe = cmd.Bool("filter-unsafe")
	}
	if cmd.IsSet("validate") {
		cfg.Markdown.ValidateLinks = cmd.Bool("validate")
	}
	if cmd.IsSet("ext") {
		cfg.Markdown.OutputExtension = cmd.String("ext")
	}
	if cmd.IsSet("extension") {
		cfg.Markdown.Extensions = cmd.StringSlice("extension")
	}
	if cmd.IsSet("page") {
		cfg.Markdown.Page = cmd.Bool("page")
	}
	if cmd.IsSet("frontmatter") {
		cfg.Markdown.Frontmatter = cmd.Bool("frontmatter")
	}
	if cmd.IsSet("unsafe-html") {
		cfg.Markdown.UnsafeHTML = cmd.Bool("unsafe-html")
	}
	if cmd.IsSet("index") {
		cfg.Index.Path = cmd.String("index")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Check(ctx, internal.WithConfig(cfg)); err != nil {
		if errors.Is(err, apperr.ErrDiagnostics) {
			return cli.Exit(err.Error(), 1)
		}
		return fmt.Errorf("check error: %w", err)
	}
	return nil
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Report(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("report error: %w", err)
	}
	return nil
}

// conversionFlags returns fresh flag values; urfave/cli flags carry state
// and cannot be shared between commands.
func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "filter-unsafe",
			Usage: "Only publish content between %%% marker lines",
		},
		&cli.BoolFlag{
			Name:  "validate",
			Usage: "Report wiki-links and local links that do not resolve",
		},
		&cli.StringFlag{
			Name:  "ext",
			Usage: "Extension of rendered files and wiki-link targets",
		},
		&cli.StringSliceFlag{
			Name:    "extension",
			Aliases: []string{"x"},
			Usage:   "Enable a goldmark extension (gfm, table, footnote, ...)",
		},
		&cli.BoolFlag{
			Name:  "frontmatter",
			Usage: "Strip YAML/TOML frontmatter and use its title",
		},
		&cli.BoolFlag{
			Name:  "unsafe-html",
			Usage: "Pass raw HTML through",
		},
	}
}

func buildFlags() []cli.Flag {
	return append(conversionFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Output directory",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Rebuild whenever the input directory changes",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent conversions (0 = one per CPU)",
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "SQLite file recording the build report",
		},
		&cli.BoolFlag{
			Name:  "page",
			Usage: "Wrap every fragment in a standalone HTML page",
		},
	)
}

func main() {
	cmd := &cli.Command{
		Name:      "wikify",
		Usage:     "Convert a directory of wiki-flavoured Markdown into HTML",
		ArgsUsage: "[input_dir]",
		Action:    runBuild,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("WIKIFY_CONFIG"),
			},
		}, buildFlags()...),
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Render documents and copy every other file",
				ArgsUsage: "[input_dir]",
				Flags:     buildFlags(),
				Action:    runBuild,
			},
			{
				Name:      "check",
				Usage:     "Validate links without writing anything; exit 1 on broken links",
				ArgsUsage: "[input_dir]",
				Flags:     conversionFlags(),
				Action:    runCheck,
			},
			{
				Name:  "report",
				Usage: "Print broken links recorded by the last build",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index",
						Usage: "SQLite file recording the build report",
					},
				},
				Action: runReport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
