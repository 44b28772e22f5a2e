package converter_test

import (
	"encoding/base64"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/slidecraft/internal/converter"
	"github.com/slidecraft/slidecraft/internal/marker"
	"github.com/slidecraft/slidecraft/internal/staging"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *staging.Store {
	t.Helper()
	store, err := staging.NewStore(testLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var imagePayload = base64.StdEncoding.EncodeToString([]byte("fake png bytes"))

func page(number int, children ...*marker.Block) *marker.Block {
	return &marker.Block{
		BlockType: marker.TypePage,
		ID:        "/page/" + string(rune('0'+number)) + "/Page/0",
		Children:  children,
	}
}

func kinds(elements []converter.Element) []marker.ElementKind {
	out := make([]marker.ElementKind, 0, len(elements))
	for _, el := range elements {
		out = append(out, el.Kind)
	}
	return out
}

func TestFlattenBasicPage(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "SectionHeader", ID: "/page/0/SectionHeader/0", HTML: "<h1>Intro</h1>", SectionHierarchy: map[string]string{"1": "Intro"}},
		&marker.Block{BlockType: "Text", ID: "/page/0/Text/1", HTML: "<p>First paragraph.</p>"},
		&marker.Block{BlockType: "Text", ID: "/page/0/Text/2", HTML: "<p>Second paragraph.</p>"},
		&marker.Block{BlockType: "Figure", ID: "/page/0/Figure/3", HTML: "Figure",
			Images: map[string]string{"/page/0/Figure/3": imagePayload}},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 4)
	assert.Equal(t, []marker.ElementKind{
		marker.KindHeading, marker.KindParagraph, marker.KindParagraph, marker.KindImage,
	}, kinds(elements))
	assert.Equal(t, "Intro", elements[0].Text)
	assert.Equal(t, "First paragraph.", elements[1].Text)

	// The literal "Figure" caption is a placeholder and must not survive.
	assert.Equal(t, "", elements[3].Text)
	assert.NotEqual(t, staging.NoHandle, elements[3].Image)

	for _, el := range elements {
		assert.Equal(t, 1, el.SourcePage)
		assert.NotEmpty(t, el.ID)
	}
}

func TestFlattenUsesPageIDForPageNumber(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{{
		BlockType: marker.TypePage,
		ID:        "/page/7/Page/7",
		Children:  []*marker.Block{{BlockType: "Text", HTML: "late text"}},
	}}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, 8, elements[0].SourcePage)
}

func TestFlattenSkipsNonPageEntries(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{
		{BlockType: "Text", HTML: "stray root text"},
		nil,
		page(0, &marker.Block{BlockType: "Text", HTML: "real content"}),
	}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, "real content", elements[0].Text)
}

func TestFlattenFigureGroupWithCaption(t *testing.T) {
	store := newTestStore(t)
	figureID := "/page/0/Figure/2"
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "FigureGroup", ID: "/page/0/FigureGroup/1", HTML: "FigureGroup",
			Children: []*marker.Block{
				{BlockType: "Figure", ID: figureID, Images: map[string]string{figureID: imagePayload}},
				{BlockType: "Caption", ID: "/page/0/Caption/3", HTML: "<i>Results over time</i>"},
			}},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, marker.KindImage, elements[0].Kind)
	assert.Equal(t, "Results over time", elements[0].Text)
	assert.NotEqual(t, staging.NoHandle, elements[0].Image)
}

func TestFlattenFigureGroupWithoutPayloadYieldsNothing(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "FigureGroup", ID: "/page/0/FigureGroup/1", HTML: "FigureGroup",
			Children: []*marker.Block{
				{BlockType: "Figure", ID: "/page/0/Figure/2"},
				{BlockType: "Caption", ID: "/page/0/Caption/3", HTML: "orphaned caption"},
			}},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	assert.Empty(t, elements)
}

func TestFlattenConsumedGroupNotRevisited(t *testing.T) {
	store := newTestStore(t)
	figureID := "/page/0/Figure/2"
	group := &marker.Block{BlockType: "FigureGroup", ID: "/page/0/FigureGroup/1", HTML: "FigureGroup",
		Children: []*marker.Block{
			{BlockType: "Figure", ID: figureID, Images: map[string]string{figureID: imagePayload}},
		}}

	// The same group surfaces twice in the traversal order.
	pages := []*marker.Block{page(0, group, group)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	assert.Len(t, elements, 1)
}

func TestFlattenStageFailureKeepsCaption(t *testing.T) {
	store, err := staging.NewStore(testLogger(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	figureID := "/page/0/Figure/1"
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "Figure", ID: figureID, HTML: "A real caption",
			Images: map[string]string{figureID: imagePayload}},
		&marker.Block{BlockType: "Figure", ID: "/page/0/Figure/2", HTML: "Figure",
			Images: map[string]string{"/page/0/Figure/2": imagePayload}},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	// The captioned figure is demoted to text only; the placeholder-captioned
	// one has nothing left and is dropped.
	require.Len(t, elements, 1)
	assert.Equal(t, marker.KindImage, elements[0].Kind)
	assert.Equal(t, "A real caption", elements[0].Text)
	assert.Equal(t, staging.NoHandle, elements[0].Image)
}

func TestFlattenListGroup(t *testing.T) {
	store := newTestStore(t)
	list := &marker.Block{BlockType: "ListGroup", ID: "/page/0/ListGroup/0",
		Children: []*marker.Block{
			{BlockType: "ListItem", HTML: "<li>One</li>"},
			{BlockType: "ListItem", HTML: "<li>Two</li>"},
			{BlockType: "Text", HTML: "not an item"},
		}}

	pages := []*marker.Block{page(0, list, list)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, marker.KindList, elements[0].Kind)
	assert.Equal(t, "- One\n- Two", elements[0].Text)
}

func TestFlattenSkipsIgnoredAndBareListItems(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "PageHeader", HTML: "running head"},
		&marker.Block{BlockType: "PageFooter", HTML: "page 1 of 10"},
		&marker.Block{BlockType: "ListItem", HTML: "orphan item"},
		&marker.Block{BlockType: "Text", HTML: "kept"},
		&marker.Block{BlockType: "Text", HTML: "   "},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, "kept", elements[0].Text)
}

func TestFlattenStructuralFallsBackToChildren(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "Table", ID: "/page/0/Table/0", HTML: "<p>Table</p>",
			Children: []*marker.Block{
				{BlockType: "TableCell", HTML: "row one"},
				{BlockType: "TableCell", HTML: "row two"},
			}},
	)}

	elements := converter.NewFlattener(testLogger(), store, false).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Equal(t, marker.KindTable, elements[0].Kind)
	assert.Equal(t, "row one\nrow two", elements[0].Text)
}

func TestFlattenRendersTablesAsMarkdown(t *testing.T) {
	store := newTestStore(t)
	pages := []*marker.Block{page(0,
		&marker.Block{BlockType: "Table", ID: "/page/0/Table/0",
			HTML: "<table><tr><th>Name</th><th>Value</th></tr><tr><td>alpha</td><td>1</td></tr></table>"},
	)}

	elements := converter.NewFlattener(testLogger(), store, true).Flatten(pages)

	require.Len(t, elements, 1)
	assert.Contains(t, elements[0].Text, "|")
	assert.Contains(t, elements[0].Text, "alpha")
}
