package probe

import (
	"sync"
	"time"
)

// RateWindow counts events inside a sliding time window. Entries older than
// the window are evicted on every mark and read, so the count is always a
// rolling throughput figure.
type RateWindow struct {
	mu     sync.Mutex
	window time.Duration
	marks  []time.Time
}

func NewRateWindow(window time.Duration) *RateWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &RateWindow{window: window}
}

// Mark records one event at now.
func (w *RateWindow) Mark(now time.Time) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.evictLocked(now)
	w.marks = append(w.marks, now)
	w.mu.Unlock()
}

// Count returns the number of events still inside the window at now.
func (w *RateWindow) Count(now time.Time) int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)
	return len(w.marks)
}

// PerMinute normalizes the windowed count to a per-minute rate.
func (w *RateWindow) PerMinute(now time.Time) float64 {
	if w == nil || w.window <= 0 {
		return 0
	}
	return float64(w.Count(now)) * float64(time.Minute) / float64(w.window)
}

func (w *RateWindow) evictLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.marks) && !w.marks[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.marks = append(w.marks[:0], w.marks[i:]...)
	}
}
