// Package probe writes the monotonically increasing record stream into the
// primary store and tracks its own rolling throughput.
package probe

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"replwatch/monitor"
	"replwatch/store"
)

// Producer writes one probe record per tick. A single goroutine owns the
// write path, so at most one insert is ever in flight; when a tick's work
// overruns the interval the ticker fires again immediately rather than
// skipping ahead.
type Producer struct {
	src      store.Source
	registry *monitor.Registry

	interval   time.Duration
	retryDelay time.Duration
	opTimeout  time.Duration

	// seq holds the last sequence confirmed written. Restart policy is
	// resume-from-high-watermark: NewProducer seeds it from the primary
	// rather than resetting to zero, so sequences stay strictly increasing
	// across process lifetimes.
	seq   atomic.Int64
	total atomic.Uint64
	rate  *RateWindow
	now   func() time.Time

	lastError   string
	lastErrorAt time.Time
	lastWrite   time.Time
}

// NewProducer recovers the sequence counter from the primary high-watermark
// and returns a producer ready to run.
func NewProducer(ctx context.Context, src store.Source, registry *monitor.Registry, interval, retryDelay, opTimeout time.Duration) (*Producer, error) {
	if interval <= 0 {
		interval = time.Second
	}
	if retryDelay <= 0 {
		retryDelay = interval
	}
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	p := &Producer{
		src:        src,
		registry:   registry,
		interval:   interval,
		retryDelay: retryDelay,
		opTimeout:  opTimeout,
		rate:       NewRateWindow(time.Minute),
		now:        time.Now,
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	wm, ok, err := src.HighWatermark(opCtx)
	if err != nil {
		return nil, fmt.Errorf("producer: recover sequence: %w", err)
	}
	if ok {
		p.seq.Store(wm.Sequence)
		log.Printf("Producer: resuming from sequence %d", wm.Sequence)
	}
	return p, nil
}

// LastSequence returns the last sequence confirmed written.
func (p *Producer) LastSequence() int64 {
	return p.seq.Load()
}

// Run ticks until ctx is cancelled. A failed write is logged, throttled by a
// fixed (non-exponential) delay, and retried with the same sequence number so
// the source stays gap-free; a transient failure is never fatal.
func (p *Producer) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Producer: panic: %v", r)
		}
	}()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Producer: write failed: %v", err)
				p.recordError(err)
				p.publish()
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.retryDelay):
				}
				continue
			}
			p.publish()
		}
	}
}

// Tick writes the next record to the primary. The sequence only advances
// once the insert succeeds.
func (p *Producer) Tick(ctx context.Context) error {
	next := p.seq.Load() + 1
	now := p.now().UTC()
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	if err := p.src.Insert(opCtx, store.Record{Sequence: next, Timestamp: now}); err != nil {
		return err
	}
	p.seq.Store(next)
	p.total.Add(1)
	p.rate.Mark(now)
	p.lastWrite = now
	p.lastError = ""
	return nil
}

func (p *Producer) recordError(err error) {
	p.lastError = err.Error()
	p.lastErrorAt = p.now().UTC()
}

func (p *Producer) publish() {
	if p.registry == nil {
		return
	}
	now := p.now().UTC()
	p.registry.SetProducer(monitor.ProducerStats{
		LastSequence: p.seq.Load(),
		TotalWritten: p.total.Load(),
		WritesPerMin: p.rate.PerMinute(now),
		LastWrite:    p.lastWrite,
		LastError:    p.lastError,
		LastErrorAt:  p.lastErrorAt,
		Suspended:    p.lastError != "",
	})
}
