package convert

import "time"

// Progress is one progress snapshot spanning the whole batch.
type Progress struct {
	Filename   string        `json:"filename"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	FileIndex  int           `json:"file_index"`
	FileCount  int           `json:"file_count"`
	Fraction   float64       `json:"fraction"`
	ETA        time.Duration `json:"-"`
	ETAText    string        `json:"eta"`
}

// Reporter receives pipeline events for display. Implementations must not
// block; the pipeline calls them inline between pages.
type Reporter interface {
	Progress(p Progress)
	PageProcessed(page int, ok bool)
	FileFinished(res FileResult)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Progress(Progress)       {}
func (NopReporter) PageProcessed(int, bool) {}
func (NopReporter) FileFinished(FileResult) {}
