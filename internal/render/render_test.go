package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

var twoPages = []string{
	"# Title\n\nHello **world**",
	"- item1\n- item2",
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Block
	}{
		{"blank", "   ", Block{Kind: Blank}},
		{"h1", "# Title", Block{Kind: Heading, Level: 1, Text: "Title"}},
		{"h2", "## Section", Block{Kind: Heading, Level: 2, Text: "Section"}},
		{"h4", "#### Deep", Block{Kind: Heading, Level: 4, Text: "Deep"}},
		{"dash bullet", "- item", Block{Kind: ListItem, Text: "item"}},
		{"star bullet", "* item", Block{Kind: ListItem, Text: "item"}},
		{"ordered", "12. twelfth", Block{Kind: ListItem, Ordered: true, Marker: "12.", Text: "twelfth"}},
		{"table row", "| a | b |", Block{Kind: TableRow, Text: "| a | b |"}},
		{"paragraph", "just prose", Block{Kind: Paragraph, Text: "just prose"}},
		{"hash without space", "#nospace", Block{Kind: Paragraph, Text: "#nospace"}},
		{"leading whitespace trimmed", "  # Title", Block{Kind: Heading, Level: 1, Text: "Title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyLine(tt.line)
			if got != tt.want {
				t.Errorf("ClassifyLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestBoldSpans(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Span
	}{
		{"plain", "no markup", []Span{{Text: "no markup"}}},
		{"bold middle", "Hello **world** again", []Span{
			{Text: "Hello "},
			{Text: "world", Bold: true},
			{Text: " again"},
		}},
		{"bold only", "**all bold**", []Span{{Text: "all bold", Bold: true}}},
		{"two bold runs", "**a** and **b**", []Span{
			{Text: "a", Bold: true},
			{Text: " and "},
			{Text: "b", Bold: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoldSpans(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("BoldSpans(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestText(t *testing.T) {
	got := Text(twoPages)
	want := "Title\n\nHello world\n\n--- Page Break ---\n\nitem1\nitem2"
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestTextStripsAllMarkup(t *testing.T) {
	got := Text([]string{"## Head\n1. first\n*emph* and **strong**"})
	want := "Head\nfirst\nemph and strong"
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestHTML(t *testing.T) {
	got := HTML(twoPages)

	for _, want := range []string{
		"<h1>Title</h1>",
		"<p>Hello <strong>world</strong></p>",
		"<li>item1</li>",
		"<li>item2</li>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("HTML output missing %q", want)
		}
	}

	if n := strings.Count(got, `<div class="page-break"></div>`); n != 1 {
		t.Errorf("expected exactly 1 page-break divider, got %d", n)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") || !strings.HasSuffix(got, "</body></html>") {
		t.Error("HTML output missing document shell")
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	got := HTML([]string{"# a < b\n5 > 3 & **x<y**"})

	if !strings.Contains(got, "<h1>a &lt; b</h1>") {
		t.Errorf("heading content not escaped: %s", got)
	}
	if !strings.Contains(got, "5 &gt; 3 &amp; <strong>x&lt;y</strong>") {
		t.Errorf("paragraph content not escaped: %s", got)
	}
}

func TestWriteDOCX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDOCX(twoPages, &buf); err != nil {
		t.Fatalf("WriteDOCX() error = %v", err)
	}

	doc := readDocumentXML(t, buf.Bytes())

	if !strings.Contains(doc, `w:val="Heading1"`) {
		t.Error("document.xml missing Heading1 paragraph style")
	}
	if n := strings.Count(doc, `w:type="page"`); n != 1 {
		t.Errorf("expected exactly 1 page break, got %d", n)
	}
	for _, want := range []string{"Title", "world", "• item1", "• item2"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing text %q", want)
		}
	}

	// The bold run for "world" carries <w:b/> in its run properties.
	idx := strings.Index(doc, "world")
	if idx < 0 {
		t.Fatal("document.xml missing bold span text")
	}
	if !strings.Contains(doc[:idx], "<w:b") {
		t.Error("no bold run property before bold span text")
	}
}

func TestWriteDOCXOrderedList(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDOCX([]string{"1. first\n2. second"}, &buf); err != nil {
		t.Fatalf("WriteDOCX() error = %v", err)
	}

	doc := readDocumentXML(t, buf.Bytes())
	for _, want := range []string{"1. first", "2. second"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing ordered item %q", want)
		}
	}
}

func readDocumentXML(t *testing.T, b []byte) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open document.xml: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read document.xml: %v", err)
		}
		return string(data)
	}
	t.Fatal("archive missing word/document.xml")
	return ""
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"docx", FormatDOCX, false},
		{"DOCX", FormatDOCX, false},
		{"txt", FormatText, false},
		{"text", FormatText, false},
		{"html", FormatHTML, false},
		{" htm ", FormatHTML, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			out, err := Render(f, twoPages)
			if err != nil {
				t.Fatalf("Render(%q) error = %v", f, err)
			}
			if len(out) == 0 {
				t.Fatalf("Render(%q) produced no output", f)
			}
		})
	}

	if _, err := Render(Format("pdf"), twoPages); err == nil {
		t.Error("expected error for unknown format")
	}
}
