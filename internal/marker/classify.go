package marker

import (
	"sort"
	"strings"
)

// ElementKind is the semantic role a block plays on a slide.
type ElementKind string

const (
	KindNone       ElementKind = ""          // block carries no slide content
	KindTitle      ElementKind = "title"     // assigned by the packer, never by classification
	KindHeading    ElementKind = "heading"
	KindSubheading ElementKind = "subheading"
	KindParagraph  ElementKind = "paragraph"
	KindList       ElementKind = "list"
	KindListItem   ElementKind = "list_item" // internal: consumed as a child of a list, never emitted
	KindTable      ElementKind = "table"
	KindCode       ElementKind = "code"
	KindEquation   ElementKind = "equation"
	KindImage      ElementKind = "image"
)

// ignoredBlockTypes are skipped entirely, subtree included.
var ignoredBlockTypes = map[string]bool{
	"PageFooter":      true,
	"PageHeader":      true,
	"Footnote":        true,
	"Form":            true,
	"Handwriting":     true,
	"TableOfContents": true,
}

// groupImageBlockTypes are composite image blocks whose real content lives in
// their children.
var groupImageBlockTypes = map[string]bool{
	"FigureGroup":  true,
	"PictureGroup": true,
}

var directImageBlockTypes = map[string]bool{
	"Figure":  true,
	"Picture": true,
}

// Ignored reports whether the block type is excluded from conversion.
func Ignored(blockType string) bool {
	return ignoredBlockTypes[blockType]
}

// IsImageGroup reports whether the block type is a composite figure/picture
// group resolved through its children.
func IsImageGroup(blockType string) bool {
	return groupImageBlockTypes[blockType]
}

// IsDirectImage reports whether the block type carries its image payload
// directly.
func IsDirectImage(blockType string) bool {
	return directImageBlockTypes[blockType]
}

// Classify maps a block to its semantic element kind. Pure function of the
// block type and, for section headers, the section hierarchy.
func Classify(b *Block) ElementKind {
	switch b.BlockType {
	case "SectionHeader":
		return classifyHeading(b.SectionHierarchy)
	case "Text", "TextInlineMath":
		return KindParagraph
	case "Figure", "Picture", "FigureGroup", "PictureGroup":
		return KindImage
	case "ListGroup":
		return KindList
	case "ListItem":
		return KindListItem
	case "Table", "TableGroup":
		return KindTable
	case "Code":
		return KindCode
	case "Equation":
		return KindEquation
	case "Caption":
		return KindParagraph
	default:
		return KindNone
	}
}

// classifyHeading folds the section hierarchy onto two heading levels. The
// smallest level key wins; "1" and "2" stay headings, deeper levels become
// subheadings. A missing hierarchy defaults to heading.
func classifyHeading(hierarchy map[string]string) ElementKind {
	if len(hierarchy) == 0 {
		return KindHeading
	}
	keys := make([]string, 0, len(hierarchy))
	for k := range hierarchy {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	switch keys[0] {
	case "1", "2":
		return KindHeading
	default:
		return KindSubheading
	}
}

// placeholderPhrases lists, per block type, caption/content strings that
// merely restate the block type and carry no information. Group entries for
// structural blocks compare against the base type name (Group suffix
// stripped); image groups compare against the full group name.
var placeholderPhrases = map[string][]string{
	"Figure":       {"figure"},
	"Picture":      {"picture"},
	"FigureGroup":  {"figuregroup"},
	"PictureGroup": {"picturegroup"},
	"Table":        {"table"},
	"TableGroup":   {"table"},
	"Code":         {"code"},
	"Equation":     {"equation"},
}

// IsPlaceholderText reports whether text is a known placeholder for the given
// block type (case-insensitive), e.g. a literal "Figure" caption.
func IsPlaceholderText(blockType, text string) bool {
	phrases, ok := placeholderPhrases[blockType]
	if !ok {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range phrases {
		if needle == phrase {
			return true
		}
	}
	return false
}
