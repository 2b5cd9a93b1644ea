package convert

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrRunActive is returned when a new run is requested while one is already
// in flight. The pipeline processes one run at a time.
var ErrRunActive = errors.New("a conversion run is already active")

// State tracks the liveness of the single active run plus the artifacts the
// control surface inspects: the current progress snapshot and the last
// processed page's image/text pair for spot-checking OCR quality.
type State struct {
	mu         sync.Mutex
	processing bool
	progress   Progress
	lastImage  []byte
	lastText   string

	cancel atomic.Bool
}

// Begin marks a run active. It fails if one is already running.
func (s *State) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return ErrRunActive
	}
	s.processing = true
	s.progress = Progress{}
	s.cancel.Store(false)
	return nil
}

// End marks the run finished.
func (s *State) End() {
	s.mu.Lock()
	s.processing = false
	s.mu.Unlock()
}

// Processing reports whether a run is active.
func (s *State) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Cancel requests cooperative cancellation of the active run. The in-flight
// page finishes; the run stops at the next page boundary.
func (s *State) Cancel() {
	s.cancel.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (s *State) Cancelled() bool {
	return s.cancel.Load()
}

func (s *State) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// Progress returns the latest progress snapshot.
func (s *State) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *State) setLast(image []byte, text string) {
	s.mu.Lock()
	s.lastImage = image
	s.lastText = text
	s.mu.Unlock()
}

// Last returns the most recently processed page image and its OCR text.
func (s *State) Last() ([]byte, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastImage, s.lastText
}
