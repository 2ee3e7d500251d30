package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"replwatch/config"
	"replwatch/monitor"
)

func testUIConfig() config.UIConfig {
	return config.UIConfig{
		Mode:      "ansi",
		Charset:   "ascii",
		RefreshMS: 20,
		MinWidth:  40,
		MinHeight: 10,
	}
}

func runDashboard(t *testing.T, d *Dashboard) ExitAction {
	t.Helper()
	done := make(chan ExitAction, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case action := <-done:
		return action
	case <-time.After(3 * time.Second):
		t.Fatalf("dashboard did not exit")
		return ExitQuit
	}
}

func TestDashboardQuitKey(t *testing.T) {
	dev := newFakeDevice(80, 24)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())
	dev.keys <- Key{Rune: 'q'}

	if action := runDashboard(t, d); action != ExitQuit {
		t.Fatalf("expected ExitQuit, got %v", action)
	}
	if dev.flushes == 0 {
		t.Fatalf("expected at least one rendered frame before exit")
	}
}

func TestDashboardInterruptKey(t *testing.T) {
	dev := newFakeDevice(80, 24)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())
	dev.keys <- Key{Interrupt: true}

	if action := runDashboard(t, d); action != ExitQuit {
		t.Fatalf("expected ExitQuit on interrupt, got %v", action)
	}
}

func TestDashboardTeardownConfirmed(t *testing.T) {
	dev := newFakeDevice(80, 24)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())
	dev.keys <- Key{Rune: 'x'}
	dev.keys <- Key{Rune: 'y'}

	if action := runDashboard(t, d); action != ExitTeardown {
		t.Fatalf("expected ExitTeardown, got %v", action)
	}
}

func TestDashboardTeardownDeclined(t *testing.T) {
	dev := newFakeDevice(80, 24)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())
	dev.keys <- Key{Rune: 'x'}
	dev.keys <- Key{Rune: 'n'}
	dev.keys <- Key{Rune: 'q'}

	if action := runDashboard(t, d); action != ExitQuit {
		t.Fatalf("expected decline to fall back to quit, got %v", action)
	}
	if d.confirmTeardown {
		t.Fatalf("expected pending confirmation cleared")
	}
}

func TestDashboardSnapshotKeyDumpsStatus(t *testing.T) {
	dev := newFakeDevice(80, 24)
	reg := monitor.NewRegistry()
	reg.Upsert("alpha", monitor.TargetSnapshot{Name: "alpha", Status: monitor.StatusConnected})
	dir := t.TempDir()
	d := NewDashboard(dev, reg, testUIConfig(), dir)
	dev.keys <- Key{Rune: 's'}
	dev.keys <- Key{Rune: 'q'}

	runDashboard(t, d)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dump dir: %v", err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".json" {
		t.Fatalf("expected one status dump, got %v", entries)
	}
}

func TestDashboardTooSmallScreen(t *testing.T) {
	dev := newFakeDevice(20, 6)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())
	dev.keys <- Key{Rune: 'q'}

	runDashboard(t, d)
	if got := rowText(d.fb, 3); !strings.Contains(got, "terminal too small") {
		t.Fatalf("expected too-small hint, got %q", got)
	}
}

func TestDashboardRefreshClamped(t *testing.T) {
	dev := newFakeDevice(80, 24)
	cfg := testUIConfig()
	cfg.RefreshMS = 1
	d := NewDashboard(dev, monitor.NewRegistry(), cfg, t.TempDir())
	if d.refresh != minRefresh {
		t.Fatalf("expected refresh clamped to %v, got %v", minRefresh, d.refresh)
	}
}

func TestDashboardResizeForcesRedraw(t *testing.T) {
	dev := newFakeDevice(80, 24)
	d := NewDashboard(dev, monitor.NewRegistry(), testUIConfig(), t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan ExitAction, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	dev.setSize(100, 30)
	time.Sleep(60 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("dashboard did not exit on cancel")
	}

	w, h := d.fb.Size()
	if w != 100 || h != 30 {
		t.Fatalf("expected buffer resized to 100x30, got %dx%d", w, h)
	}
	if dev.clears < 2 {
		t.Fatalf("expected a forced redraw after resize, got %d clears", dev.clears)
	}
}
