package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replwatch.yaml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
replicas:
  - name: replica-a
    path: data/replica-a.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Primary.Path != "data/primary.db" {
		t.Fatalf("expected default primary path, got %q", cfg.Primary.Path)
	}
	if cfg.Producer.IntervalMS != 1000 {
		t.Fatalf("expected producer interval default 1000, got %d", cfg.Producer.IntervalMS)
	}
	if cfg.UI.Mode != "ansi" || cfg.UI.Charset != "auto" {
		t.Fatalf("unexpected ui defaults: %+v", cfg.UI)
	}
	if cfg.UI.RefreshMS != 250 || cfg.UI.MinWidth != 60 || cfg.UI.MinHeight != 14 {
		t.Fatalf("unexpected ui sizing defaults: %+v", cfg.UI)
	}
	if cfg.Monitor.PollIntervalMS != 1000 || cfg.Monitor.OpTimeoutMS != 5000 {
		t.Fatalf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
}

func TestLoadRequiresReplicas(t *testing.T) {
	path := writeConfig(t, `
primary:
  path: data/primary.db
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing replicas")
	}
}

func TestLoadRejectsDuplicateReplicaNames(t *testing.T) {
	path := writeConfig(t, `
replicas:
  - name: replica-a
    path: a.db
  - name: replica-a
    path: b.db
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate replica name") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestLoadRejectsReplicaOnPrimaryPath(t *testing.T) {
	path := writeConfig(t, `
primary:
  path: shared.db
replicas:
  - name: replica-a
    path: shared.db
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "primary path") {
		t.Fatalf("expected primary path clash error, got %v", err)
	}
}

func TestLoadSuggestsUIMode(t *testing.T) {
	path := writeConfig(t, `
replicas:
  - name: replica-a
    path: a.db
ui:
  mode: tcelll
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error for unknown ui.mode")
	}
	if !strings.Contains(err.Error(), `did you mean "tcell"`) {
		t.Fatalf("expected tcell suggestion, got %v", err)
	}
}

func TestLoadSuggestsCharset(t *testing.T) {
	path := writeConfig(t, `
replicas:
  - name: replica-a
    path: a.db
ui:
  charset: unicod
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), `did you mean "unicode"`) {
		t.Fatalf("expected unicode suggestion, got %v", err)
	}
}
