// Package marker models the JSON block tree produced by the Marker layout
// extraction tool and provides block classification plus the subprocess
// integration that runs Marker itself.
package marker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Block is one node of the Marker layout tree. Blocks are read-only input;
// the converter never mutates them.
type Block struct {
	BlockType        string            `json:"block_type"`
	ID               string            `json:"id,omitempty"`
	HTML             string            `json:"html,omitempty"`
	Images           map[string]string `json:"images,omitempty"`           // block id -> base64 payload
	Children         []*Block          `json:"children,omitempty"`
	SectionHierarchy map[string]string `json:"section_hierarchy,omitempty"` // nesting level -> path
	Polygon          json.RawMessage   `json:"polygon,omitempty"`           // passed through opaquely
}

// Well-known block types referenced throughout the converter.
const (
	TypeDocument = "Document"
	TypePage     = "Page"
)

// DecodePages parses a Marker JSON payload and returns the candidate page
// blocks plus the number of actual Page blocks among them. The root may be a
// bare array of pages, a Document block wrapping pages, or a single Page.
// Any other root shape is recoverable: it yields no pages and a warning.
// Malformed JSON is a hard error.
func DecodePages(data []byte, logger *logrus.Logger) ([]*Block, int, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, 0, fmt.Errorf("marker JSON is empty")
	}

	var candidates []*Block
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(data, &candidates); err != nil {
			return nil, 0, fmt.Errorf("failed to parse marker JSON: %w", err)
		}
	case '{':
		var root Block
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, 0, fmt.Errorf("failed to parse marker JSON: %w", err)
		}
		switch root.BlockType {
		case TypeDocument:
			candidates = root.Children
		case TypePage:
			candidates = []*Block{&root}
		default:
			logger.WithField("block_type", root.BlockType).Warn("Marker JSON root has unhandled block type, treating as empty input")
			return nil, 0, nil
		}
	default:
		// A scalar root is unexpected but recoverable, like an unknown block
		// type: the run completes with an empty document.
		logger.Warn("Marker JSON root is not an array or object, treating as empty input")
		return nil, 0, nil
	}

	totalPages := 0
	for _, b := range candidates {
		if b != nil && b.BlockType == TypePage {
			totalPages++
		}
	}
	return candidates, totalPages, nil
}

// PageNumber derives the 1-based page number for a page block. Marker encodes
// an explicit 0-based index in ids shaped like "/page/3/...", which takes
// precedence over the positional index; any parse failure falls back to the
// position in the page sequence.
func PageNumber(pageID string, position int) int {
	number := position + 1
	if pageID == "" {
		return number
	}
	parts := strings.Split(pageID, "/")
	if len(parts) > 2 && parts[1] == "page" {
		if idx, err := strconv.Atoi(parts[2]); err == nil && idx >= 0 {
			number = idx + 1
		}
	}
	return number
}

// Sidecar is the optional "<basename>_meta.json" document metadata written by
// Marker next to its main output.
type Sidecar struct {
	Title  string  `json:"title"`
	Author *string `json:"author"`
}

// LoadSidecar reads the sidecar metadata file. Absence or a decode failure is
// non-fatal: a warning is logged and nil is returned.
func LoadSidecar(path string, logger *logrus.Logger) *Sidecar {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).Warn("Marker meta JSON not found, proceeding without it")
		return nil
	}

	var meta Sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.WithField("path", path).WithError(err).Warn("Could not decode marker meta JSON")
		return nil
	}
	return &meta
}
