package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// setupLogging routes the standard logger to a file, since the dashboard owns
// the terminal for the whole process lifetime. Returns a closer that restores
// stderr logging for any output after teardown.
func setupLogging(path string) (func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.LUTC)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}
