// Package monitor polls a primary and a replica store per target, computes
// multi-dimensional replication lag, scans a bounded window for missing
// sequences, and publishes full snapshots into a shared registry.
package monitor

import "time"

// TargetStatus is the connection state of a monitored replica.
type TargetStatus int

const (
	StatusUnknown TargetStatus = iota
	StatusConnected
	StatusDisconnected
	StatusError
)

func (s TargetStatus) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ScanFailed is the MissingCount sentinel for a gap scan that could not
// complete; it is distinct from a verified-clean 0.
const ScanFailed = -1

// TargetSnapshot is the full published state of one target. A monitor owns
// its snapshot exclusively and replaces the registry entry wholesale every
// loop iteration, so readers never observe a torn value.
type TargetSnapshot struct {
	Name   string       `json:"name"`
	Status TargetStatus `json:"status"`

	// Lag fields are only meaningful when HasLag is set; a loop that failed
	// before the compute step publishes HasLag=false.
	HasLag      bool          `json:"has_lag"`
	TimeLag     time.Duration `json:"time_lag"`
	RecordLag   int64         `json:"record_lag"`
	SequenceLag int64         `json:"sequence_lag"`

	// MissingSequences holds at most MissingSampleLimit values for display;
	// MissingCount is the untruncated total, or ScanFailed.
	MissingSequences []int64 `json:"missing_sequences,omitempty"`
	MissingCount     int     `json:"missing_count"`

	LastAttempt       time.Time `json:"last_attempt"`
	LastSuccess       time.Time `json:"last_success"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
}

// ProducerStats is the producer's published throughput state.
type ProducerStats struct {
	LastSequence int64     `json:"last_sequence"`
	TotalWritten uint64    `json:"total_written"`
	WritesPerMin float64   `json:"writes_per_min"`
	LastWrite    time.Time `json:"last_write"`
	LastError    string    `json:"last_error,omitempty"`
	LastErrorAt  time.Time `json:"last_error_at"`
	Suspended    bool      `json:"suspended"`
}
