// Package htmltext converts the HTML fragments carried by Marker layout blocks
// into plain text suitable for slide content. Line breaks (<br>) become
// newlines; everything else is flattened to space-separated text.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Clean strips markup from an HTML fragment and returns normalised plain text.
// An empty or whitespace-only fragment yields "". If the fragment cannot be
// parsed the raw input is returned trimmed, so content is never lost.
func Clean(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var pieces []string
	for _, node := range doc.Selection.Nodes {
		collectText(node, &pieces)
	}

	text := strings.Join(pieces, " ")
	// Joining inserts spaces around the newline markers; fold them back in.
	text = strings.ReplaceAll(text, " \n", "\n")
	text = strings.ReplaceAll(text, "\n ", "\n")
	text = strings.TrimSpace(text)

	return norm.NFC.String(text)
}

// collectText walks the node tree appending trimmed text runs. <br> elements
// contribute a newline marker; script and style subtrees are skipped.
func collectText(n *html.Node, pieces *[]string) {
	switch n.Type {
	case html.TextNode:
		if trimmed := strings.Join(strings.Fields(n.Data), " "); trimmed != "" {
			*pieces = append(*pieces, trimmed)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			*pieces = append(*pieces, "\n")
			return
		case "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, pieces)
	}
}
