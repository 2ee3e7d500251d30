// Package store defines the probe-record data source contract and its SQLite
// implementation. The producer and the per-target monitors only ever talk to
// a Source; schema provisioning and teardown live here as well so the rest of
// the program can treat them as opaque calls.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is a single probe row. Records are created only by the producer and
// are immutable once written.
type Record struct {
	Sequence  int64
	Timestamp time.Time
}

// Watermark is the newest row observed at a source at a point in time.
type Watermark struct {
	Sequence  int64
	Timestamp time.Time
	RowID     int64
}

// Source abstracts the queries the producer and monitors need. Every call is
// bounded by the caller's context; implementations must not retry internally.
type Source interface {
	// Insert writes one record. Used only against the primary.
	Insert(ctx context.Context, rec Record) error
	// HighWatermark returns the newest record, or ok=false when the store
	// holds no records yet.
	HighWatermark(ctx context.Context) (wm Watermark, ok bool, err error)
	// SequencesInRange returns the set of sequence numbers present in
	// [lo, hi], both bounds inclusive.
	SequencesInRange(ctx context.Context, lo, hi int64) (map[int64]struct{}, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS probe_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    seq INTEGER NOT NULL UNIQUE,
    written_at INTEGER NOT NULL
);`

// SQLiteSource implements Source against a single SQLite database file.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path. Replica handles are
// opened read-only, the local analogue of a restricted read credential.
func Open(path string, readOnly bool, busyTimeout time.Duration) (*SQLiteSource, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: ensure dir: %w", err)
		}
	}
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Serialize access; each loop owns its own Source.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if busyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("pragma busy_timeout=%d", busyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set busy_timeout %s: %w", path, err)
		}
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Provision guarantees the probe table exists. Safe to call repeatedly.
func (s *SQLiteSource) Provision(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store: provision on closed source")
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: provision %s: %w", s.path, err)
	}
	return nil
}

// Teardown drops the probe table. Destructive; callers gate it behind an
// explicit confirmation.
func (s *SQLiteSource) Teardown(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store: teardown on closed source")
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS probe_records"); err != nil {
		return fmt.Errorf("store: teardown %s: %w", s.path, err)
	}
	return nil
}

func (s *SQLiteSource) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return errors.New("store: insert on closed source")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO probe_records (seq, written_at) VALUES (?, ?)",
		rec.Sequence, rec.Timestamp.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert seq %d: %w", rec.Sequence, err)
	}
	return nil
}

func (s *SQLiteSource) HighWatermark(ctx context.Context) (Watermark, bool, error) {
	if s == nil || s.db == nil {
		return Watermark{}, false, errors.New("store: watermark on closed source")
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT seq, written_at, id FROM probe_records ORDER BY seq DESC LIMIT 1")
	var seq, writtenAt, rowID int64
	if err := row.Scan(&seq, &writtenAt, &rowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Watermark{}, false, nil
		}
		return Watermark{}, false, fmt.Errorf("store: watermark %s: %w", s.path, err)
	}
	return Watermark{
		Sequence:  seq,
		Timestamp: time.UnixMilli(writtenAt).UTC(),
		RowID:     rowID,
	}, true, nil
}

func (s *SQLiteSource) SequencesInRange(ctx context.Context, lo, hi int64) (map[int64]struct{}, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: range scan on closed source")
	}
	if lo > hi {
		return map[int64]struct{}{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq FROM probe_records WHERE seq BETWEEN ? AND ?", lo, hi)
	if err != nil {
		return nil, fmt.Errorf("store: range scan %s: %w", s.path, err)
	}
	defer rows.Close()

	found := make(map[int64]struct{}, hi-lo+1)
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("store: range scan %s: %w", s.path, err)
		}
		found[seq] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: range scan %s: %w", s.path, err)
	}
	return found, nil
}

func (s *SQLiteSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
