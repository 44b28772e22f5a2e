package htmltext

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// TableMarkdown renders an HTML table fragment as GitHub-flavoured markdown,
// preserving the cell structure that Clean would flatten away. Falls back to
// Clean when conversion fails or produces nothing.
func TableMarkdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.Table())

	markdown, err := converter.ConvertString(fragment)
	if err != nil {
		return Clean(fragment)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return Clean(fragment)
	}
	return markdown
}
