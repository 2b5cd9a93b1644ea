// Package render converts the constrained per-page markdown dialect the OCR
// prompt produces into DOCX, plain text, and HTML documents.
//
// The dialect is deliberately narrow (headings # to ####, - / * bullets,
// "N." ordered items, pipe-delimited table rows, **bold** spans, blank-line
// paragraph breaks), so each physical line is classified independently by its
// prefix rather than parsed as full markdown.
package render

import (
	"regexp"
	"strings"
)

// BlockKind identifies how a single line should be rendered.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	ListItem
	TableRow
	Blank
)

// Block is one classified line.
type Block struct {
	Kind    BlockKind
	Level   int    // heading level, 1-4
	Ordered bool   // list item kind
	Marker  string // original ordered-list marker, e.g. "3."
	Text    string // line content with the structural prefix stripped
}

var orderedItemRe = regexp.MustCompile(`^(\d+)\. `)

// ClassifyLine classifies one physical line of page markdown.
func ClassifyLine(line string) Block {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return Block{Kind: Blank}
	case strings.HasPrefix(line, "#### "):
		return Block{Kind: Heading, Level: 4, Text: line[5:]}
	case strings.HasPrefix(line, "### "):
		return Block{Kind: Heading, Level: 3, Text: line[4:]}
	case strings.HasPrefix(line, "## "):
		return Block{Kind: Heading, Level: 2, Text: line[3:]}
	case strings.HasPrefix(line, "# "):
		return Block{Kind: Heading, Level: 1, Text: line[2:]}
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return Block{Kind: ListItem, Text: line[2:]}
	}

	if m := orderedItemRe.FindString(line); m != "" {
		return Block{
			Kind:    ListItem,
			Ordered: true,
			Marker:  strings.TrimSpace(m),
			Text:    line[len(m):],
		}
	}

	if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
		// Table rows pass through as raw text; no table reconstruction.
		return Block{Kind: TableRow, Text: line}
	}

	return Block{Kind: Paragraph, Text: line}
}

// PageBlocks classifies every line of one page.
func PageBlocks(page string) []Block {
	lines := strings.Split(page, "\n")
	blocks := make([]Block, len(lines))
	for i, line := range lines {
		blocks[i] = ClassifyLine(line)
	}
	return blocks
}

// Span is a run of paragraph text that is either bold or plain.
type Span struct {
	Text string
	Bold bool
}

var boldSpanRe = regexp.MustCompile(`(\*\*.*?\*\*)`)

// BoldSpans splits paragraph text on **bold** markers into ordered spans.
// Empty segments between adjacent markers are dropped.
func BoldSpans(text string) []Span {
	parts := boldSpanRe.Split(text, -1)
	markers := boldSpanRe.FindAllString(text, -1)

	var spans []Span
	for i, part := range parts {
		if part != "" {
			spans = append(spans, Span{Text: part})
		}
		if i < len(markers) {
			inner := strings.TrimSuffix(strings.TrimPrefix(markers[i], "**"), "**")
			spans = append(spans, Span{Text: inner, Bold: true})
		}
	}
	return spans
}
