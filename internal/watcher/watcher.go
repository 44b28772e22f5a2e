// Package watcher converts PDF documents as they appear in a watched
// directory. Conversions run one at a time, in arrival order; a failed file
// is logged and never stops the watcher.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/slidecraft/slidecraft/internal/config"
	"github.com/slidecraft/slidecraft/internal/converter"
)

// settleDelay is how long a file must stop growing before it is considered
// fully written.
const settleDelay = 500 * time.Millisecond

// Watch converts every .pdf file created under dir until ctx is cancelled.
// Results are written next to the source as "<basename>.slides.json", or into
// outDir when set.
func Watch(ctx context.Context, logger *logrus.Logger, cfg *config.Config, dir, outDir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("watch directory not found: %s", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.WithField("dir", dir).Info("Watching for PDF documents")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			waitForSettle(ctx, event.Name)
			if err := convertOne(ctx, logger, cfg, event.Name, outDir); err != nil {
				logger.WithField("source", event.Name).WithError(err).Error("Conversion failed")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Watcher error")
		}
	}
}

// waitForSettle blocks until the file size stops changing, so half-copied
// documents are not handed to marker.
func waitForSettle(ctx context.Context, path string) {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(settleDelay):
		}
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.Size() == lastSize {
			return
		}
		lastSize = info.Size()
	}
}

func convertOne(ctx context.Context, logger *logrus.Logger, cfg *config.Config, sourcePath, outDir string) error {
	start := time.Now()
	doc, err := converter.Convert(ctx, logger, cfg, converter.Options{SourcePath: sourcePath})
	if err != nil {
		return err
	}
	doc.ProcessingMetadata.ProcessingTime = roundSeconds(time.Since(start))

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	targetDir := filepath.Dir(sourcePath)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}
		targetDir = outDir
	}
	target := filepath.Join(targetDir, base+".slides.json")

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	logger.WithFields(logrus.Fields{
		"source": sourcePath,
		"target": target,
		"slides": len(doc.Slides),
	}).Info("Converted document")
	return nil
}

// roundSeconds reports a duration as seconds with millisecond precision.
func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(time.Millisecond)) / float64(time.Second)
}
