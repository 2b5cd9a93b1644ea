package render

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"
)

// Default body text: Arial 11pt. go-docx sizes are half-points.
const (
	bodyFont = "Arial"
	bodySize = "22"
)

// Heading sizes by level (half-points): 16pt, 14pt, 13pt, 12pt.
var headingSizes = [5]string{"", "32", "28", "26", "24"}

// WriteDOCX renders the pages into one Word document. Each page's lines map
// to heading blocks, list paragraphs, raw-text paragraphs for table-like
// lines, and mixed bold/plain runs; a hard page break separates pages.
func WriteDOCX(pages []string, w io.Writer) error {
	doc := docx.New().WithDefaultTheme()

	for i, page := range pages {
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}

		for _, b := range PageBlocks(page) {
			switch b.Kind {
			case Blank:
				doc.AddParagraph()
			case Heading:
				p := doc.AddParagraph()
				p.Style(fmt.Sprintf("Heading%d", b.Level))
				p.AddText(b.Text).
					Font(bodyFont, "", bodyFont, "").
					Size(headingSizes[b.Level]).
					Bold()
			case ListItem:
				p := doc.AddParagraph()
				text := b.Text
				if b.Ordered {
					text = b.Marker + " " + text
				} else {
					text = "• " + text
				}
				p.AddText(text).Font(bodyFont, "", bodyFont, "").Size(bodySize)
			case TableRow:
				p := doc.AddParagraph()
				p.AddText(b.Text).Font(bodyFont, "", bodyFont, "").Size(bodySize)
			default:
				p := doc.AddParagraph()
				for _, span := range BoldSpans(b.Text) {
					r := p.AddText(span.Text).Font(bodyFont, "", bodyFont, "").Size(bodySize)
					if span.Bold {
						r.Bold()
					}
				}
			}
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write docx: %w", err)
	}
	return nil
}
