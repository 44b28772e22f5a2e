package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/slidecraft/slidecraft/internal/config"
	"github.com/slidecraft/slidecraft/internal/marker"
	"github.com/slidecraft/slidecraft/internal/staging"
)

// Options control a single conversion run.
type Options struct {
	SourcePath     string // the PDF (or other marker-supported) document
	OutputDir      string // marker intermediate output dir; falls back to config
	SkipMarker     bool   // reuse existing marker output instead of invoking it
	MarkerJSONPath string // explicit marker JSON path (with SkipMarker)
	MarkerMetaPath string // explicit marker meta JSON path (with SkipMarker)
	TempDir        string // image staging base dir; falls back to config
}

// Convert runs the full pipeline: marker invocation (unless skipped), tree
// flattening, slide packing, and document assembly. It either returns a
// complete document or an error; no partial document is ever exposed.
func Convert(ctx context.Context, logger *logrus.Logger, cfg *config.Config, opts Options) (*Document, error) {
	if _, err := os.Stat(opts.SourcePath); err != nil {
		return nil, fmt.Errorf("source document not found: %s", opts.SourcePath)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	// One conversion at a time against the same marker output directory.
	lock := flock.New(filepath.Join(outputDir, ".slidecraft.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire conversion lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another conversion is already running against %s", outputDir)
	}
	defer func() { _ = lock.Unlock() }()

	runner := marker.NewRunner(cfg, logger)

	jsonPath := opts.MarkerJSONPath
	metaPath := opts.MarkerMetaPath
	if opts.SkipMarker {
		if jsonPath == "" || metaPath == "" {
			defaultJSON, defaultMeta := marker.OutputPaths(opts.SourcePath, outputDir)
			if jsonPath == "" {
				jsonPath = defaultJSON
			}
			if metaPath == "" {
				metaPath = defaultMeta
			}
		}
	} else {
		runner.Preflight(opts.SourcePath)
		jsonPath, metaPath, err = runner.Run(ctx, opts.SourcePath, outputDir)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("marker JSON not found at %s: %w", jsonPath, err)
	}
	pages, totalPages, err := marker.DecodePages(data, logger)
	if err != nil {
		return nil, err
	}

	sidecar := marker.LoadSidecar(metaPath, logger)

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = cfg.TempDir
	}
	store, err := staging.NewStore(logger, tempDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	elements := NewFlattener(logger, store, cfg.RenderTablesMarkdown).Flatten(pages)
	slides := NewPacker(logger, store, cfg.Limits).Pack(elements)
	doc := AssembleDocument(slides, opts.SourcePath, sidecar, totalPages)

	logger.WithFields(logrus.Fields{
		"source":   opts.SourcePath,
		"elements": len(elements),
		"slides":   len(slides),
		"pages":    totalPages,
	}).Info("Conversion complete")

	return doc, nil
}
