package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/slidecraft/slidecraft/internal/config"
	"github.com/slidecraft/slidecraft/internal/converter"
	"github.com/slidecraft/slidecraft/internal/watcher"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the
// appropriate logrus level. Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr) // stdout is reserved for the final JSON
	logger.SetLevel(parseLogLevel())
	return logger
}

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	var cfg *config.Config

	app := &cli.App{
		Name:    "slidecraft",
		Usage:   "Convert PDF documents into structured slide decks using Marker",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return cfg.Validate()
		},
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert a single document to a slide deck JSON",
				ArgsUsage: "<document>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output-dir", Usage: "directory for Marker's intermediate files"},
					&cli.BoolFlag{Name: "skip-marker", Usage: "reuse existing Marker output instead of running it"},
					&cli.StringFlag{Name: "marker-json", Usage: "explicit path to Marker's .json output (with --skip-marker)"},
					&cli.StringFlag{Name: "marker-meta", Usage: "explicit path to Marker's _meta.json output (with --skip-marker)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "save the final slide deck JSON to a file"},
					&cli.BoolFlag{Name: "no-stdout", Usage: "do not print the final JSON to standard output"},
					&cli.StringFlag{Name: "temp-dir", Usage: "base directory for temporary image staging"},
				},
				Action: func(c *cli.Context) error {
					return runConvert(c, logger, cfg)
				},
			},
			{
				Name:      "watch",
				Usage:     "Watch a directory and convert PDFs as they appear",
				ArgsUsage: "<directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out-dir", Usage: "write slide deck JSON files here instead of next to the source"},
				},
				Action: func(c *cli.Context) error {
					return runWatch(c, logger, cfg)
				},
			},
			{
				Name:  "info",
				Usage: "Show configuration and Marker availability",
				Action: func(c *cli.Context) error {
					return runInfo(cfg)
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Printf("slidecraft %s (commit %s, built %s)\n", Version, Commit, BuildDate)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runConvert(c *cli.Context, logger *logrus.Logger, cfg *config.Config) error {
	sourcePath := c.Args().First()
	if sourcePath == "" {
		return fmt.Errorf("missing document argument, see 'slidecraft convert --help'")
	}

	start := time.Now()
	doc, err := converter.Convert(c.Context, logger, cfg, converter.Options{
		SourcePath:     sourcePath,
		OutputDir:      c.String("output-dir"),
		SkipMarker:     c.Bool("skip-marker"),
		MarkerJSONPath: c.String("marker-json"),
		MarkerMetaPath: c.String("marker-meta"),
		TempDir:        c.String("temp-dir"),
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	doc.ProcessingMetadata.ProcessingTime = float64(elapsed.Round(time.Millisecond)) / float64(time.Second)

	output, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if outPath := c.String("out"); outPath != "" {
		if err := os.WriteFile(outPath, output, 0644); err != nil {
			return fmt.Errorf("failed to save output to %s: %w", outPath, err)
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "Saved slide deck to %s\n", outPath)
	}

	if !c.Bool("no-stdout") {
		fmt.Println(string(output))
	} else if c.String("out") == "" {
		logger.Warn("--no-stdout used without --out, no output produced")
	}

	color.New(color.FgGreen).Fprintf(os.Stderr, "Converted %s into %d slides in %.3fs\n",
		sourcePath, len(doc.Slides), elapsed.Seconds())
	return nil
}

func runWatch(c *cli.Context, logger *logrus.Logger, cfg *config.Config) error {
	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("missing directory argument, see 'slidecraft watch --help'")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watcher.Watch(ctx, logger, cfg, dir, c.String("out-dir"))
}

func runInfo(cfg *config.Config) error {
	markerStatus := cfg.MarkerPath
	if markerStatus == "" {
		markerStatus = color.New(color.FgRed).Sprint("not found (install marker or set MARKER_PATH)")
	}

	fmt.Printf("slidecraft %s\n\n", Version)
	fmt.Printf("Marker executable:  %s\n", markerStatus)
	fmt.Printf("Marker timeout:     %ds\n", cfg.TimeoutSeconds)
	fmt.Printf("Output directory:   %s\n", cfg.OutputDir)
	fmt.Printf("Slide limits:       %d text / %d images / %d text-with-images\n",
		cfg.Limits.MaxTextPerSlide, cfg.Limits.MaxImagesPerSlide, cfg.Limits.MaxTextWithImages)
	tableMode := "plain text"
	if cfg.RenderTablesMarkdown {
		tableMode = "markdown"
	}
	fmt.Printf("Table rendering:    %s\n", tableMode)
	return nil
}
