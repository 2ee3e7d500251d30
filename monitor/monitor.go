package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"replwatch/store"
)

const (
	// GapScanWindow bounds the sliding missing-sequence scan below the
	// primary high-watermark.
	GapScanWindow = 100
	// MissingSampleLimit caps how many missing sequences a snapshot carries
	// for display; MissingCount stays untruncated.
	MissingSampleLimit = 10

	backoffStep = 5 * time.Second
	backoffMax  = 30 * time.Second
)

// Monitor polls one replica against the primary. Each monitor runs on its own
// goroutine and owns its snapshot exclusively; the registry only ever sees
// full replacements.
type Monitor struct {
	name     string
	primary  store.Source
	replica  store.Source
	registry *Registry

	pollInterval time.Duration
	opTimeout    time.Duration
	now          func() time.Time

	snap TargetSnapshot
}

func New(name string, primary, replica store.Source, registry *Registry, pollInterval, opTimeout time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Monitor{
		name:         name,
		primary:      primary,
		replica:      replica,
		registry:     registry,
		pollInterval: pollInterval,
		opTimeout:    opTimeout,
		now:          time.Now,
		snap:         TargetSnapshot{Name: name, Status: StatusUnknown},
	}
}

// Run loops until ctx is cancelled. A panic in one monitor is contained here
// so it can never take down the producer or a sibling monitor.
func (m *Monitor) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Monitor[%s]: panic: %v", m.name, r)
		}
	}()
	for {
		if ctx.Err() != nil {
			return
		}
		delay, ok := m.runOnce(ctx)
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runOnce performs one fetch/compute/publish iteration and returns the delay
// before the next one. ok=false means cancellation was observed; the loop
// must exit without further publishes.
func (m *Monitor) runOnce(ctx context.Context) (time.Duration, bool) {
	m.snap.LastAttempt = m.now().UTC()
	err := m.observe(ctx)
	if ctx.Err() != nil {
		return 0, false
	}
	if err != nil {
		m.snap.ConsecutiveErrors++
		m.snap.Status = StatusError
		m.snap.LastError = err.Error()
		m.snap.HasLag = false
		// No scan ran this iteration; gap data from the last good one must
		// not be shown as current.
		m.snap.MissingSequences = nil
		m.snap.MissingCount = ScanFailed
		m.publish()
		log.Printf("Monitor[%s]: %v (consecutive=%d)", m.name, err, m.snap.ConsecutiveErrors)
		return BackoffDelay(m.snap.ConsecutiveErrors), true
	}
	m.snap.ConsecutiveErrors = 0
	m.snap.LastError = ""
	m.snap.LastSuccess = m.now().UTC()
	m.publish()
	return m.pollInterval, true
}

func (m *Monitor) observe(ctx context.Context) error {
	pwm, pok, err := m.fetchWatermark(ctx, m.primary)
	if err != nil {
		return fmt.Errorf("primary watermark: %w", err)
	}
	rwm, rok, err := m.fetchWatermark(ctx, m.replica)
	if err != nil {
		return fmt.Errorf("replica watermark: %w", err)
	}

	if !pok {
		// No probes written yet; nothing to measure or scan.
		m.snap.Status = StatusDisconnected
		if rok {
			m.snap.Status = StatusConnected
		}
		m.snap.HasLag = false
		m.snap.MissingSequences = nil
		m.snap.MissingCount = 0
		return nil
	}

	missing, count := m.scanGaps(ctx, pwm.Sequence)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.snap.MissingSequences = missing
	m.snap.MissingCount = count

	if !rok {
		// Replica reachable but has not received a single record.
		m.snap.Status = StatusDisconnected
		m.snap.HasLag = false
		return nil
	}

	m.snap.Status = StatusConnected
	m.snap.HasLag = true
	// A replica can briefly report a watermark ahead of a stale primary
	// read; lags are clamped at zero.
	m.snap.RecordLag = clampNonNegative(pwm.RowID - rwm.RowID)
	m.snap.SequenceLag = clampNonNegative(pwm.Sequence - rwm.Sequence)
	m.snap.TimeLag = m.now().UTC().Sub(rwm.Timestamp)
	return nil
}

// scanGaps compares the window [max(1, primarySeq-GapScanWindow), primarySeq]
// against the replica. A scan that cannot complete reports ScanFailed rather
// than blocking lag reporting.
func (m *Monitor) scanGaps(ctx context.Context, primarySeq int64) ([]int64, int) {
	lo := primarySeq - GapScanWindow
	if lo < 1 {
		lo = 1
	}
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	found, err := m.replica.SequencesInRange(opCtx, lo, primarySeq)
	if err != nil {
		log.Printf("Monitor[%s]: gap scan [%d,%d]: %v", m.name, lo, primarySeq, err)
		return nil, ScanFailed
	}
	var sample []int64
	count := 0
	for seq := lo; seq <= primarySeq; seq++ {
		if _, ok := found[seq]; ok {
			continue
		}
		count++
		if len(sample) < MissingSampleLimit {
			sample = append(sample, seq)
		}
	}
	return sample, count
}

func (m *Monitor) fetchWatermark(ctx context.Context, src store.Source) (store.Watermark, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Watermark{}, false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return src.HighWatermark(opCtx)
}

func (m *Monitor) publish() {
	m.registry.Upsert(m.name, m.snap)
}

// BackoffDelay returns min(5*errors, 30) seconds, zero when errors <= 0.
func BackoffDelay(consecutiveErrors int) time.Duration {
	if consecutiveErrors <= 0 {
		return 0
	}
	d := time.Duration(consecutiveErrors) * backoffStep
	if d > backoffMax {
		d = backoffMax
	}
	return d
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
