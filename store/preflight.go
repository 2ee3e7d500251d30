package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// PreflightResult reports the outcome of a SQLite preflight check.
type PreflightResult struct {
	Healthy        bool   // No issues detected; safe to proceed.
	Quarantined    bool   // The database was renamed so startup can continue fresh.
	QuarantinePath string // Path of the quarantined main file.
	Elapsed        time.Duration
}

// Preflight runs a bounded WAL checkpoint plus quick_check against the store
// file before the main open path. A file that fails either check is renamed
// (with its -wal/-shm/-journal sidecars) to a timestamped quarantine path so
// the process can start with a fresh database instead of stalling on a
// corrupt one.
func Preflight(path, role string, timeout time.Duration, logf func(string, ...any)) (PreflightResult, error) {
	if logf == nil {
		logf = log.Printf
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	res := PreflightResult{}
	if strings.TrimSpace(path) == "" {
		return res, errors.New("preflight: empty path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Nothing on disk yet; the open path will create it.
		res.Healthy = true
		return res, nil
	}

	start := time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return res, fmt.Errorf("preflight: open %s db: %w", role, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		return res, fmt.Errorf("preflight: set busy_timeout %s: %w", role, err)
	}

	_, checkpointErr := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)")
	checkErr := quickCheck(ctx, db)
	res.Elapsed = time.Since(start)

	if checkpointErr == nil && checkErr == nil {
		res.Healthy = true
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("preflight: %s db timed out after %s", role, timeout)
	}

	_ = db.Close()
	quarantinePath, qErr := quarantine(path)
	if qErr != nil {
		return res, fmt.Errorf("preflight: %s db quarantine failed: %w (checkpoint=%v, quick_check=%v)", role, qErr, checkpointErr, checkErr)
	}
	res.Quarantined = true
	res.QuarantinePath = quarantinePath
	logf("%s db preflight failed (checkpoint=%v quick_check=%v); quarantined to %s; elapsed=%s",
		role, checkpointErr, checkErr, quarantinePath, res.Elapsed)
	return res, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

func quarantine(path string) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405Z")
	main := fmt.Sprintf("%s.bad-%s", path, ts)
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := os.Rename(p, p+".bad-"+ts); err != nil {
			return "", err
		}
	}
	return main, nil
}
