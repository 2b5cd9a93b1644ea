package render

import (
	"bytes"
	"fmt"
	"strings"
)

// Format is one of the supported output encodings.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
	FormatHTML Format = "html"
)

// Formats lists all supported encodings in primary-output preference order.
var Formats = []Format{FormatDOCX, FormatText, FormatHTML}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docx":
		return FormatDOCX, nil
	case "txt", "text":
		return FormatText, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want docx, txt, or html)", s)
	}
}

// Ext returns the file extension without a leading dot.
func (f Format) Ext() string {
	return string(f)
}

// MIME returns the content type for download metadata.
func (f Format) MIME() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatText:
		return "text/plain"
	case FormatHTML:
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// Render encodes the ordered page sequence into the requested format.
func Render(f Format, pages []string) ([]byte, error) {
	switch f {
	case FormatDOCX:
		var buf bytes.Buffer
		if err := WriteDOCX(pages, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatText:
		return []byte(Text(pages)), nil
	case FormatHTML:
		return []byte(HTML(pages)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}
