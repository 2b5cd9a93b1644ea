package convert

import (
	"fmt"
	"time"
)

// etaWindow keeps a bounded window of recent page durations and estimates
// remaining time as the simple moving average times the pages left.
type etaWindow struct {
	samples []time.Duration
	size    int
	next    int
	full    bool
}

func newETAWindow(size int) *etaWindow {
	return &etaWindow{samples: make([]time.Duration, size), size: size}
}

func (w *etaWindow) Add(d time.Duration) {
	w.samples[w.next] = d
	w.next = (w.next + 1) % w.size
	if w.next == 0 {
		w.full = true
	}
}

func (w *etaWindow) Average() time.Duration {
	n := w.next
	if w.full {
		n = w.size
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range w.samples[:n] {
		sum += d
	}
	return sum / time.Duration(n)
}

// Estimate returns the projected time to process the given number of
// remaining pages, or zero before any sample exists.
func (w *etaWindow) Estimate(remaining int) time.Duration {
	if remaining <= 0 {
		return 0
	}
	return w.Average() * time.Duration(remaining)
}

// FormatETA renders a duration the way progress displays expect:
// "47s", "3m 12s", "2h 05m".
func FormatETA(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
	}
}
