// Package checkpoint persists per-page conversion progress so an interrupted
// run can resume without re-processing pages. A single slot on disk holds the
// most recent run's progress; starting a new conversion overwrites it.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema guards against loading a file that parses as JSON but does not
// describe conversion progress. Anything that fails validation is treated the
// same as no checkpoint at all.
const recordSchema = `{
	"type": "object",
	"required": ["total_pages", "completed_pages", "markdown_pages", "failed_pages", "filename"],
	"properties": {
		"total_pages":     {"type": "integer", "minimum": 0},
		"completed_pages": {"type": "integer", "minimum": 0},
		"markdown_pages":  {"type": "array", "items": {"type": "string"}},
		"failed_pages":    {"type": "array", "items": {"type": "integer"}},
		"filename":        {"type": "string"},
		"job_id":          {"type": "integer"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("checkpoint.json", recordSchema)

// Record is the saved progress of one conversion run. MarkdownPages always
// has TotalPages entries; an empty string marks a page not yet processed.
// CompletedPages counts pages finished by the forward pass. Page indices in
// FailedPages are 0-based positions into MarkdownPages.
type Record struct {
	TotalPages     int      `json:"total_pages"`
	CompletedPages int      `json:"completed_pages"`
	MarkdownPages  []string `json:"markdown_pages"`
	FailedPages    []int    `json:"failed_pages"`
	Filename       string   `json:"filename"`
	JobID          int64    `json:"job_id,omitempty"`
}

// Store reads and writes the single checkpoint slot.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Save overwrites the checkpoint slot with the given record. Nil page and
// failure lists are written as empty arrays so the saved file always passes
// the load-side schema.
func (s *Store) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *rec
	if out.MarkdownPages == nil {
		out.MarkdownPages = []string{}
	}
	if out.FailedPages == nil {
		out.FailedPages = []int{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		"path", s.path,
		"completed", rec.CompletedPages,
		"total", rec.TotalPages)
	return nil
}

// Load returns the saved record, or nil when no usable checkpoint exists.
// A missing, unreadable, or malformed file all mean "no progress": the
// caller starts from page one rather than failing the run.
func (s *Store) Load() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read checkpoint, starting fresh", "path", s.path, "error", err)
		}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("checkpoint is not valid JSON, starting fresh", "path", s.path, "error", err)
		return nil
	}
	if err := compiledSchema.Validate(raw); err != nil {
		s.logger.Warn("checkpoint failed schema validation, starting fresh", "path", s.path, "error", err)
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("failed to decode checkpoint, starting fresh", "path", s.path, "error", err)
		return nil
	}
	if len(rec.MarkdownPages) != rec.TotalPages {
		s.logger.Warn("checkpoint page list does not match page count, starting fresh",
			"path", s.path, "pages", len(rec.MarkdownPages), "total", rec.TotalPages)
		return nil
	}
	return &rec
}

// Clear removes the checkpoint slot. Clearing an empty slot is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}
