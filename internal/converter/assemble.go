package converter

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slidecraft/slidecraft/internal/marker"
)

// AssembleDocument wraps finalized slides with document-level metadata.
// Title resolution order: sidecar metadata, then the first slide's leading
// title element, then the source file's base name. ProcessingTime is left at
// zero for the caller to fill in after the run.
func AssembleDocument(slides []Slide, sourcePath string, sidecar *marker.Sidecar, totalPages int) *Document {
	title := ""
	var author *string
	if sidecar != nil {
		title = strings.TrimSpace(sidecar.Title)
		author = sidecar.Author
	}
	if title == "" {
		if len(slides) > 0 && len(slides[0].Elements) > 0 && slides[0].Elements[0].Type == string(marker.KindTitle) {
			title = slides[0].Elements[0].Content
		}
	}
	if title == "" {
		base := filepath.Base(sourcePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if title == "" {
		title = "Untitled Document"
	}

	var fileSize int64
	if info, err := os.Stat(sourcePath); err == nil {
		fileSize = info.Size()
	}

	if slides == nil {
		slides = make([]Slide, 0)
	}

	now := time.Now().UTC()
	return &Document{
		ID:              uuid.New().String(),
		Title:           title,
		Author:          author,
		CreatedAt:       now,
		LastViewedAt:    now,
		LastViewedSlide: 0,
		Slides:          slides,
		TotalPages:      totalPages,
		FileSize:        fileSize,
		LocalPath:       sourcePath,
		CloudSyncStatus: CloudSyncStatus,
		ProcessingMetadata: ProcessingMetadata{
			ModelUsed:     ModelUsed,
			ParserVersion: ParserVersion,
			Confidence:    nil,
		},
	}
}
