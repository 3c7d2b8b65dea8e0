package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zh1zunbao/makritup/internal/config"
	"github.com/zh1zunbao/makritup/internal/converter"
	"github.com/zh1zunbao/makritup/internal/server"
	"github.com/zh1zunbao/makritup/internal/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "markitup",
		Usage:     "Convert documents (DOCX, PPTX, XLSX, CSV, HTML, PDF, WAV, images) to Markdown",
		ArgsUsage: "<input>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file or directory; Markdown goes to stdout when unset",
			},
			&cli.StringFlag{
				Name:    "image-dir",
				Aliases: []string{"i"},
				Usage:   "Directory for extracted images; images are embedded inline when unset",
			},
			&cli.BoolFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Name extracted images with the configured vision model",
			},
			&cli.BoolFlag{
				Name:  "no-ai",
				Usage: "Always use timestamp image names",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of inputs converted concurrently",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Action: convertAction,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve conversions over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Aliases: []string{"l"},
						Usage:   "Listen address (defaults to the configured one)",
					},
				},
				Action: serveAction,
			},
		},
	}
}

// loadConfig merges the configuration file with command-line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("image-dir") {
		cfg.ImageDir = c.String("image-dir")
	}
	switch {
	case c.Bool("no-ai"):
		cfg.ImageNaming = config.NamingTimestamp
	case c.Bool("ai"):
		cfg.ImageNaming = config.NamingAI
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	return cfg, cfg.Validate()
}

func convertAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no input files specified")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	inputs := c.Args().Slice()
	outputOption := c.String("output")
	if len(inputs) > 1 && outputOption != "" {
		if info, err := os.Stat(outputOption); err != nil || !info.IsDir() {
			return fmt.Errorf("output %s must be an existing directory when converting %d inputs", outputOption, len(inputs))
		}
	}
	results := make([]string, len(inputs))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(cfg.Workers)
	for i, inputPath := range inputs {
		g.Go(func() error {
			slog.Debug("processing", "input", inputPath)
			md, err := convertFile(ctx, cfg, inputPath, outputOption)
			if err != nil {
				return fmt.Errorf("failed to convert %s: %w", inputPath, err)
			}
			results[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if outputOption == "" {
		for _, md := range results {
			fmt.Fprint(c.App.Writer, md)
		}
	}
	return nil
}

// convertFile converts one input. With an output option the Markdown is
// written to disk and an empty string is returned.
func convertFile(ctx context.Context, cfg config.Config, inputPath, outputOption string) (string, error) {
	if !utils.FileExists(inputPath) {
		return "", fmt.Errorf("input file does not exist: %s", inputPath)
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", err
	}

	var outputPath string
	if outputOption != "" {
		outputPath, err = utils.GetOutputPath(inputPath, outputOption)
		if err != nil {
			return "", fmt.Errorf("failed to determine output path: %w", err)
		}
		cfg.OutputPath = outputPath
	}

	md, err := converter.New(cfg).Convert(ctx, converter.RawDocument{Data: data, Path: inputPath})
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		return md, nil
	}

	if err := utils.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	slog.Debug("converted", "input", inputPath, "output", outputPath)
	return "", nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Listen
	if c.IsSet("listen") {
		addr = c.String("listen")
	}
	return server.New(config.NewStore(cfg), slog.Default()).ListenAndServe(c.Context, addr)
}
