package probe

import (
	"testing"
	"time"
)

func TestRateWindowEvictsOldMarks(t *testing.T) {
	w := NewRateWindow(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Mark(base)
	w.Mark(base.Add(30 * time.Second))
	w.Mark(base.Add(59 * time.Second))
	if got := w.Count(base.Add(59 * time.Second)); got != 3 {
		t.Fatalf("expected 3 marks inside window, got %d", got)
	}

	// The first mark is now older than 60s and must be gone.
	if got := w.Count(base.Add(61 * time.Second)); got != 2 {
		t.Fatalf("expected 2 marks after eviction, got %d", got)
	}
	if got := w.Count(base.Add(5 * time.Minute)); got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
}

func TestRateWindowPerMinute(t *testing.T) {
	w := NewRateWindow(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		w.Mark(base.Add(time.Duration(i) * time.Second))
	}
	got := w.PerMinute(base.Add(30 * time.Second))
	if got != 30 {
		t.Fatalf("expected 30 writes/min, got %v", got)
	}
}

func TestRateWindowBoundary(t *testing.T) {
	w := NewRateWindow(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.Mark(base)
	// A mark exactly window-old is evicted.
	if got := w.Count(base.Add(time.Minute)); got != 0 {
		t.Fatalf("expected boundary mark evicted, got %d", got)
	}
}
