package marker_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/slidecraft/internal/config"
	"github.com/slidecraft/slidecraft/internal/marker"
)

func TestOutputPaths(t *testing.T) {
	jsonPath, metaPath := marker.OutputPaths("/docs/Annual Report.pdf", "out")

	assert.Equal(t, filepath.Join("out", "Annual Report", "Annual Report.json"), jsonPath)
	assert.Equal(t, filepath.Join("out", "Annual Report", "Annual Report_meta.json"), metaPath)
}

func TestRunRequiresMarkerPath(t *testing.T) {
	cfg := &config.Config{TimeoutSeconds: 10}
	runner := marker.NewRunner(cfg, testLogger())

	_, _, err := runner.Run(context.Background(), "doc.pdf", t.TempDir())
	assert.ErrorContains(t, err, "marker_single not found")
}

// writeStub drops an executable shell script standing in for marker_single.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "marker_single")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestRunWithStubExecutable(t *testing.T) {
	stub := writeStub(t, `
base=$(basename "$1" .pdf)
mkdir -p "$3/$base"
printf '{"block_type":"Document","children":[]}' > "$3/$base/$base.json"
`)

	source := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(source, []byte("%PDF-1.4"), 0644))

	cfg := &config.Config{MarkerPath: stub, TimeoutSeconds: 30}
	runner := marker.NewRunner(cfg, testLogger())

	outputDir := t.TempDir()
	jsonPath, metaPath, err := runner.Run(context.Background(), source, outputDir)
	require.NoError(t, err)

	expectedJSON, expectedMeta := marker.OutputPaths(source, outputDir)
	assert.Equal(t, expectedJSON, jsonPath)
	assert.Equal(t, expectedMeta, metaPath)
	assert.FileExists(t, jsonPath)
}

func TestRunReportsFailure(t *testing.T) {
	stub := writeStub(t, `
echo "model weights not found" >&2
exit 3
`)

	cfg := &config.Config{MarkerPath: stub, TimeoutSeconds: 30}
	runner := marker.NewRunner(cfg, testLogger())

	_, _, err := runner.Run(context.Background(), "doc.pdf", t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "marker failed")
	assert.ErrorContains(t, err, "model weights not found")
}

func TestRunReportsMissingOutput(t *testing.T) {
	stub := writeStub(t, "exit 0\n")

	cfg := &config.Config{MarkerPath: stub, TimeoutSeconds: 30}
	runner := marker.NewRunner(cfg, testLogger())

	_, _, err := runner.Run(context.Background(), "doc.pdf", t.TempDir())
	assert.ErrorContains(t, err, "output JSON not found")
}

func TestRunTimesOut(t *testing.T) {
	stub := writeStub(t, "sleep 5\n")

	cfg := &config.Config{MarkerPath: stub, TimeoutSeconds: 1}
	runner := marker.NewRunner(cfg, testLogger())

	_, _, err := runner.Run(context.Background(), "doc.pdf", t.TempDir())
	assert.ErrorContains(t, err, "timed out")
}

func TestPreflightNonPDF(t *testing.T) {
	cfg := &config.Config{TimeoutSeconds: 10}
	runner := marker.NewRunner(cfg, testLogger())

	assert.Zero(t, runner.Preflight("slides.pptx"))
}

func TestPreflightUnreadablePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	cfg := &config.Config{TimeoutSeconds: 10}
	runner := marker.NewRunner(cfg, testLogger())

	assert.Zero(t, runner.Preflight(path))
}
