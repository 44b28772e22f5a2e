package converter

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/slidecraft/slidecraft/internal/htmltext"
	"github.com/slidecraft/slidecraft/internal/marker"
	"github.com/slidecraft/slidecraft/internal/staging"
)

// Flattener walks the page blocks of a Marker tree and produces the ordered
// element sequence fed to the packer. Child order within a page is trusted as
// reading order; the flattener never re-derives it from geometry.
type Flattener struct {
	logger       *logrus.Logger
	store        *staging.Store
	renderTables bool
}

// NewFlattener creates a Flattener staging image payloads into store.
// renderTables switches table content from flattened text to markdown.
func NewFlattener(logger *logrus.Logger, store *staging.Store, renderTables bool) *Flattener {
	return &Flattener{logger: logger, store: store, renderTables: renderTables}
}

// Flatten converts the candidate page blocks into elements, in (page order,
// within-page order). Non-Page entries are skipped with a warning. Visited-id
// bookkeeping is scoped to this call.
func (f *Flattener) Flatten(pages []*marker.Block) []Element {
	consumedGroups := make(map[string]bool)
	resolvedLists := make(map[string]bool)

	var elements []Element
	for idx, page := range pages {
		if page == nil || page.BlockType != marker.TypePage {
			f.logger.WithField("index", idx).Warn("Skipping non-Page entry in marker page list")
			continue
		}
		pageNumber := marker.PageNumber(page.ID, idx)

		for _, block := range page.Children {
			if block == nil {
				continue
			}
			if marker.Ignored(block.BlockType) {
				continue
			}
			if block.ID != "" && consumedGroups[block.ID] {
				continue
			}

			kind := marker.Classify(block)
			var text string
			image := staging.NoHandle

			switch kind {
			case marker.KindNone, marker.KindListItem:
				continue
			case marker.KindImage:
				var ok bool
				text, image, ok = f.resolveImage(block, consumedGroups)
				if !ok {
					continue
				}
			case marker.KindList:
				if block.ID != "" {
					if resolvedLists[block.ID] {
						continue
					}
					resolvedLists[block.ID] = true
				}
				text = resolveList(block)
			case marker.KindTable, marker.KindCode, marker.KindEquation:
				text = f.resolveStructural(block)
			default: // heading, subheading, paragraph
				text = htmltext.Clean(block.HTML)
			}

			el := Element{
				ID:         uuid.New().String(),
				Kind:       kind,
				Text:       text,
				Image:      image,
				SourcePage: pageNumber,
				BlockType:  block.BlockType,
				Polygon:    block.Polygon,
			}
			if el.HasContent() {
				elements = append(elements, el)
			}
		}
	}
	return elements
}

// resolveImage extracts the image payload and caption for a figure block.
// Group blocks are resolved through their immediate children: the payload
// must come from the figure child's own images map keyed by the child's own
// id. Returns ok=false when classification is retracted (no resolvable
// payload and nothing to keep).
func (f *Flattener) resolveImage(block *marker.Block, consumedGroups map[string]bool) (string, staging.Handle, bool) {
	var payload, captionHTML string

	if marker.IsImageGroup(block.BlockType) {
		var figure, caption *marker.Block
		for _, child := range block.Children {
			if child == nil {
				continue
			}
			switch {
			case marker.IsDirectImage(child.BlockType):
				figure = child
			case child.BlockType == "Caption":
				caption = child
			}
		}

		if figure != nil && figure.Images != nil {
			payload = figure.Images[figure.ID]
		}
		captionHTML = block.HTML
		if caption != nil {
			captionHTML = caption.HTML
		}

		// The group subtree is consumed either way: its children must not be
		// re-emitted by a later traversal path.
		if block.ID != "" {
			consumedGroups[block.ID] = true
		}
	} else {
		if block.Images != nil {
			payload = block.Images[block.ID]
		}
		captionHTML = block.HTML
	}

	text := htmltext.Clean(captionHTML)
	if marker.IsPlaceholderText(block.BlockType, text) {
		text = ""
	}

	if payload == "" {
		// Classification retracted: an image block without a payload yields
		// no element at all.
		return "", staging.NoHandle, false
	}

	handle, err := f.store.Stage(payload)
	if err != nil {
		f.logger.WithField("block", block.ID).WithError(err).Warn("Failed to stage image payload, keeping element without image")
		return text, staging.NoHandle, text != ""
	}
	return text, handle, true
}

// resolveStructural extracts text for table, code, and equation blocks.
// Placeholder content is discarded; an empty result falls back to the
// newline-joined text of the immediate children.
func (f *Flattener) resolveStructural(block *marker.Block) string {
	var text string
	if f.renderTables && (block.BlockType == "Table" || block.BlockType == "TableGroup") {
		text = htmltext.TableMarkdown(block.HTML)
	} else {
		text = htmltext.Clean(block.HTML)
	}
	if marker.IsPlaceholderText(block.BlockType, text) {
		text = ""
	}

	if text == "" && len(block.Children) > 0 {
		var parts []string
		for _, child := range block.Children {
			if child == nil {
				continue
			}
			if t := htmltext.Clean(child.HTML); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, "\n")
	}
	return text
}

// resolveList renders a ListGroup as one "- " prefixed line per ListItem
// child.
func resolveList(block *marker.Block) string {
	var lines []string
	for _, child := range block.Children {
		if child == nil || child.BlockType != "ListItem" {
			continue
		}
		lines = append(lines, "- "+htmltext.Clean(child.HTML))
	}
	return strings.Join(lines, "\n")
}
