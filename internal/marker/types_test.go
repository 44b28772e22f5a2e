package marker_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/slidecraft/internal/marker"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDecodePagesArrayRoot(t *testing.T) {
	data := []byte(`[
		{"block_type": "Page", "id": "/page/0/Page/0", "children": []},
		{"block_type": "Page", "id": "/page/1/Page/1", "children": []},
		{"block_type": "Text", "id": "/page/0/Text/3", "html": "stray"}
	]`)

	pages, totalPages, err := marker.DecodePages(data, testLogger())
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.Equal(t, 2, totalPages)
}

func TestDecodePagesDocumentRoot(t *testing.T) {
	data := []byte(`{
		"block_type": "Document",
		"children": [
			{"block_type": "Page", "id": "/page/0/Page/0"},
			{"block_type": "Page", "id": "/page/1/Page/1"}
		]
	}`)

	pages, totalPages, err := marker.DecodePages(data, testLogger())
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Equal(t, 2, totalPages)
}

func TestDecodePagesSinglePageRoot(t *testing.T) {
	data := []byte(`{"block_type": "Page", "id": "/page/0/Page/0"}`)

	pages, totalPages, err := marker.DecodePages(data, testLogger())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, marker.TypePage, pages[0].BlockType)
	assert.Equal(t, 1, totalPages)
}

func TestDecodePagesUnhandledRoot(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"non-page block root", `{"block_type": "Text", "html": "hi"}`},
		{"number root", `42`},
		{"string root", `"hello"`},
		{"bool root", `true`},
		{"null root", `null`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pages, totalPages, err := marker.DecodePages([]byte(test.data), testLogger())
			require.NoError(t, err)
			assert.Empty(t, pages)
			assert.Zero(t, totalPages)
		})
	}
}

func TestDecodePagesMalformed(t *testing.T) {
	_, _, err := marker.DecodePages([]byte(`{"block_type": `), testLogger())
	assert.Error(t, err)

	_, _, err = marker.DecodePages([]byte("   \n"), testLogger())
	assert.Error(t, err)
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		name     string
		pageID   string
		position int
		expected int
	}{
		{"explicit index wins", "/page/4/Page/4", 0, 5},
		{"explicit zero index", "/page/0/Page/0", 3, 1},
		{"empty id falls back to position", "", 2, 3},
		{"non-numeric index falls back", "/page/x/Page/1", 1, 2},
		{"unrecognized shape falls back", "something-else", 0, 1},
		{"negative index falls back", "/page/-2/Page/0", 4, 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, marker.PageNumber(test.pageID, test.position))
		})
	}
}

func TestLoadSidecar(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "doc_meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "Annual Report", "author": "J. Smith"}`), 0644))

	meta := marker.LoadSidecar(path, testLogger())
	require.NotNil(t, meta)
	assert.Equal(t, "Annual Report", meta.Title)
	require.NotNil(t, meta.Author)
	assert.Equal(t, "J. Smith", *meta.Author)
}

func TestLoadSidecarMissingOrBroken(t *testing.T) {
	assert.Nil(t, marker.LoadSidecar("", testLogger()))
	assert.Nil(t, marker.LoadSidecar(filepath.Join(t.TempDir(), "nope.json"), testLogger()))

	path := filepath.Join(t.TempDir(), "broken_meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": `), 0644))
	assert.Nil(t, marker.LoadSidecar(path, testLogger()))
}
