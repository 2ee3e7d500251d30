package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"replwatch/monitor"
	"replwatch/store"
)

// stubSource is an in-memory Source with scriptable failures.
type stubSource struct {
	mu         sync.Mutex
	records    []store.Record
	failNext   int
	watermarkE error
}

func (s *stubSource) Insert(_ context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return errors.New("stub: insert refused")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *stubSource) HighWatermark(_ context.Context) (store.Watermark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watermarkE != nil {
		return store.Watermark{}, false, s.watermarkE
	}
	if len(s.records) == 0 {
		return store.Watermark{}, false, nil
	}
	last := s.records[len(s.records)-1]
	return store.Watermark{Sequence: last.Sequence, Timestamp: last.Timestamp, RowID: int64(len(s.records))}, true, nil
}

func (s *stubSource) SequencesInRange(_ context.Context, lo, hi int64) (map[int64]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]struct{})
	for _, r := range s.records {
		if r.Sequence >= lo && r.Sequence <= hi {
			out[r.Sequence] = struct{}{}
		}
	}
	return out, nil
}

func (s *stubSource) Close() error { return nil }

func (s *stubSource) sequences() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Sequence)
	}
	return out
}

func newTestProducer(t *testing.T, src store.Source) *Producer {
	t.Helper()
	p, err := NewProducer(context.Background(), src, monitor.NewRegistry(),
		10*time.Millisecond, 10*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("NewProducer() error: %v", err)
	}
	return p
}

func TestTickSequencesMonotonicGapFree(t *testing.T) {
	src := &stubSource{}
	p := newTestProducer(t, src)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := p.Tick(ctx); err != nil {
			t.Fatalf("Tick() error: %v", err)
		}
	}
	got := src.sequences()
	if len(got) != 10 {
		t.Fatalf("expected 10 records, got %d", len(got))
	}
	for i, seq := range got {
		if seq != int64(i+1) {
			t.Fatalf("expected sequence %d at position %d, got %d", i+1, i, seq)
		}
	}
}

func TestTickReusesSequenceAfterFailure(t *testing.T) {
	src := &stubSource{}
	p := newTestProducer(t, src)
	ctx := context.Background()
	if err := p.Tick(ctx); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	src.mu.Lock()
	src.failNext = 1
	src.mu.Unlock()
	if err := p.Tick(ctx); err == nil {
		t.Fatalf("expected insert failure")
	}
	if err := p.Tick(ctx); err != nil {
		t.Fatalf("Tick() after failure error: %v", err)
	}
	got := src.sequences()
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("expected gap-free sequences [1 2], got %v", got)
	}
}

func TestNewProducerResumesFromWatermark(t *testing.T) {
	src := &stubSource{}
	now := time.Now().UTC()
	for seq := int64(1); seq <= 42; seq++ {
		src.records = append(src.records, store.Record{Sequence: seq, Timestamp: now})
	}
	p := newTestProducer(t, src)
	if got := p.LastSequence(); got != 42 {
		t.Fatalf("expected producer to resume at 42, got %d", got)
	}
	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	got := src.sequences()
	if got[len(got)-1] != 43 {
		t.Fatalf("expected next sequence 43, got %d", got[len(got)-1])
	}
}

func TestNewProducerWatermarkErrorIsFatal(t *testing.T) {
	src := &stubSource{watermarkE: errors.New("stub: unreachable")}
	_, err := NewProducer(context.Background(), src, monitor.NewRegistry(),
		10*time.Millisecond, 10*time.Millisecond, time.Second)
	if err == nil {
		t.Fatalf("expected sequence recovery failure to be fatal")
	}
}

func TestRunSurvivesTransientFailures(t *testing.T) {
	src := &stubSource{failNext: 3}
	reg := monitor.NewRegistry()
	p, err := NewProducer(context.Background(), src, reg,
		5*time.Millisecond, 5*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("NewProducer() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(3 * time.Second)
	for {
		if len(src.sequences()) >= 5 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("producer did not recover from transient failures, wrote %v", src.sequences())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	got := src.sequences()
	for i, seq := range got {
		if seq != int64(i+1) {
			t.Fatalf("expected gap-free stream, got %v", got)
		}
	}
	if reg.Producer().TotalWritten < 5 {
		t.Fatalf("expected producer stats published, got %+v", reg.Producer())
	}
}
