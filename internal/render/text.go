package render

import (
	"regexp"
	"strings"
)

// PageSeparator joins pages in the plain-text encoding.
const PageSeparator = "\n\n--- Page Break ---\n\n"

var (
	headingMarkerRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldMarkerRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarkerRe  = regexp.MustCompile(`\*(.*?)\*`)
	bulletMarkerRe  = regexp.MustCompile(`(?m)^[-*]\s+`)
	orderedMarkerRe = regexp.MustCompile(`(?m)^\d+\.\s+`)
)

// Text strips all markup from the pages, leaving bare prose, and joins them
// with a literal page-break separator line.
func Text(pages []string) string {
	var sb strings.Builder
	for i, page := range pages {
		text := headingMarkerRe.ReplaceAllString(page, "")
		text = boldMarkerRe.ReplaceAllString(text, "$1")
		text = italicMarkerRe.ReplaceAllString(text, "$1")
		text = bulletMarkerRe.ReplaceAllString(text, "")
		text = orderedMarkerRe.ReplaceAllString(text, "")

		if i > 0 {
			sb.WriteString(PageSeparator)
		}
		sb.WriteString(text)
	}
	return sb.String()
}
