package render

import (
	"fmt"
	"html"
	"strings"
)

const htmlShell = `<!DOCTYPE html><html><head><meta charset="utf-8"><style>body{font-family:Arial,sans-serif;max-width:800px;margin:0 auto;padding:20px;}h1,h2,h3,h4{color:#333;}table{border-collapse:collapse;width:100%;}td,th{border:1px solid #ddd;padding:8px;}.page-break{page-break-after:always;border-bottom:2px dashed #ccc;margin:30px 0;}</style></head><body>`

// HTML renders the pages into a minimal styled document. Headings map to
// heading tags by level, list items to bare <li> tags (list container tags
// are deliberately not emitted), bold/italic spans to inline emphasis tags,
// blank lines to empty paragraphs, and a visible divider separates pages.
// Text content is HTML-escaped before inline markup conversion.
func HTML(pages []string) string {
	var sb strings.Builder
	sb.WriteString(htmlShell)

	for i, page := range pages {
		if i > 0 {
			sb.WriteString(`<div class="page-break"></div>`)
		}

		for _, b := range PageBlocks(page) {
			switch b.Kind {
			case Blank:
				sb.WriteString("<p></p>")
			case Heading:
				fmt.Fprintf(&sb, "<h%d>%s</h%d>", b.Level, html.EscapeString(b.Text), b.Level)
			case ListItem:
				fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(b.Text))
			case TableRow:
				fmt.Fprintf(&sb, "<p>%s</p>", inlineHTML(b.Text))
			default:
				fmt.Fprintf(&sb, "<p>%s</p>", inlineHTML(b.Text))
			}
		}
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

// inlineHTML escapes a line and converts bold/italic spans to emphasis tags.
func inlineHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = boldMarkerRe.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = italicMarkerRe.ReplaceAllString(escaped, "<em>$1</em>")
	return escaped
}
