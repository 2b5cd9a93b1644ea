package providers

import (
	"context"
)

// VisionClient is the capability the pipeline depends on for OCR.
// Implementations send one page image plus an instruction prompt to an
// external vision-completion model and return the extracted markdown text.
//
// An empty return text with a nil error is a legitimate result (blank page).
// Errors should surface enough detail (status code or message substring) for
// Classify to sort them into transient vs. permanent failure classes.
type VisionClient interface {
	// Name returns the client identifier (e.g., "gemini").
	Name() string

	// Complete sends a single multimodal request with the image and prompt.
	Complete(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}
