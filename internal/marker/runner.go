package marker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/slidecraft/slidecraft/internal/config"
)

// Runner invokes the external marker_single tool and locates its output.
type Runner struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewRunner creates a Runner using the given configuration and logger.
func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// OutputPaths returns the JSON and meta JSON paths marker_single is expected
// to deposit for the given source document: a subdirectory named after the
// basename containing "<basename>.json" and "<basename>_meta.json".
func OutputPaths(sourcePath, outputDir string) (jsonPath, metaPath string) {
	base := baseName(sourcePath)
	jsonPath = filepath.Join(outputDir, base, base+".json")
	metaPath = filepath.Join(outputDir, base, base+"_meta.json")
	return jsonPath, metaPath
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Preflight checks the source PDF before spending time on a marker run and
// returns its page count. Failures are recoverable: marker remains the
// authority on what it can process.
func (r *Runner) Preflight(sourcePath string) int {
	if !strings.EqualFold(filepath.Ext(sourcePath), ".pdf") {
		return 0
	}
	count, err := api.PageCountFile(sourcePath)
	if err != nil {
		r.logger.WithField("source", sourcePath).WithError(err).Warn("PDF preflight check failed, continuing anyway")
		return 0
	}
	r.logger.WithFields(logrus.Fields{
		"source": sourcePath,
		"pages":  count,
	}).Debug("PDF preflight check passed")
	return count
}

// Run executes marker_single against the source document, waits for it to
// finish, and returns the paths of the JSON output and sidecar metadata.
// A non-zero exit or a missing output file is a fatal error for the run.
func (r *Runner) Run(ctx context.Context, sourcePath, outputDir string) (jsonPath, metaPath string, err error) {
	if r.cfg.MarkerPath == "" {
		return "", "", fmt.Errorf("marker_single not found: install marker and ensure it is in PATH, or set MARKER_PATH")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create marker output directory %s: %w", outputDir, err)
	}

	args := []string{sourcePath, "--output_dir", outputDir, "--output_format", "json"}
	extra, err := r.cfg.ExtraMarkerArgs()
	if err != nil {
		return "", "", err
	}
	args = append(args, extra...)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.MarkerPath, args...)
	cmd.Env = os.Environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.WithField("command", r.cfg.MarkerPath+" "+strings.Join(args, " ")).Info("Running marker")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", "", fmt.Errorf("marker timed out after %d seconds", r.cfg.TimeoutSeconds)
		}
		return "", "", fmt.Errorf("marker failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	jsonPath, metaPath = OutputPaths(sourcePath, outputDir)
	if _, err := os.Stat(jsonPath); err != nil {
		return "", "", fmt.Errorf("marker output JSON not found at %s: %w", jsonPath, err)
	}
	return jsonPath, metaPath, nil
}
