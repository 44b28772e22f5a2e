// Package converter turns a Marker block tree into a slide deck document:
// flattening the tree into ordered elements, packing elements into slides
// under capacity constraints, and assembling the final document.
package converter

import (
	"encoding/json"
	"time"

	"github.com/slidecraft/slidecraft/internal/marker"
	"github.com/slidecraft/slidecraft/internal/staging"
)

// Element is one flattened, classified content unit. Elements are immutable
// after flattening except for the heading-to-title promotion the packer
// applies to the first element of a document.
type Element struct {
	ID         string
	Kind       marker.ElementKind
	Text       string
	Image      staging.Handle
	SourcePage int             // 1-based page the element came from
	BlockType  string          // origin block type, diagnostic only
	Polygon    json.RawMessage // origin geometry, passed through
}

// HasContent reports whether the element carries anything worth emitting.
func (e Element) HasContent() bool {
	return e.Text != "" || e.Image != staging.NoHandle
}

// textLikeKinds are the kinds counted against a slide's text capacity.
var textLikeKinds = map[marker.ElementKind]bool{
	marker.KindTitle:      true,
	marker.KindHeading:    true,
	marker.KindSubheading: true,
	marker.KindParagraph:  true,
	marker.KindList:       true,
	marker.KindTable:      true,
	marker.KindCode:       true,
	marker.KindEquation:   true,
}

// IsTextLike reports whether the element counts against the text capacity of
// a slide.
func (e Element) IsTextLike() bool {
	return textLikeKinds[e.Kind]
}

// Values fixed by the output document contract.
const (
	ModelUsed       = "Marker + Custom Converter"
	ParserVersion   = "1.3"
	CloudSyncStatus = "notSynced"
)

// SlideElement is an element finalized onto a slide, as serialized in the
// output document.
type SlideElement struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	ImageData string `json:"imageData,omitempty"` // base64, image elements only
	Position  int    `json:"position"`            // 0-based position on the slide
}

// SlideMetadata records provenance for one slide.
type SlideMetadata struct {
	SourcePageNumbers []int     `json:"sourcePageNumbers"`
	Timestamp         time.Time `json:"timestamp"`
}

// Slide is a finalized, never-mutated bundle of elements.
type Slide struct {
	ID          string         `json:"id"`
	SlideNumber int            `json:"slideNumber"` // 1-based, sequential, no gaps
	Elements    []SlideElement `json:"elements"`
	Metadata    SlideMetadata  `json:"metadata"`
}

// ProcessingMetadata describes the conversion run itself. ProcessingTime is
// populated by the caller after assembly.
type ProcessingMetadata struct {
	ProcessingTime float64  `json:"processingTime"`
	ModelUsed      string   `json:"modelUsed"`
	ParserVersion  string   `json:"parserVersion"`
	Confidence     *float64 `json:"confidence"`
}

// Document is the final output: all slides plus document-level metadata.
type Document struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Author             *string            `json:"author"`
	CreatedAt          time.Time          `json:"createdAt"`
	LastViewedAt       time.Time          `json:"lastViewedAt"`
	LastViewedSlide    int                `json:"lastViewedSlide"`
	Slides             []Slide            `json:"slides"`
	TotalPages         int                `json:"totalPages"`
	FileSize           int64              `json:"fileSize"`
	LocalPath          string             `json:"localPath"`
	CloudSyncStatus    string             `json:"cloudSyncStatus"`
	ProcessingMetadata ProcessingMetadata `json:"processingMetadata"`
}
