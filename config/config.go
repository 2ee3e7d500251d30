// Package config loads and validates the replwatch YAML configuration. The
// loaded value is immutable after Load returns; components receive it by
// reference at construction and never mutate it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// Config is the complete program configuration.
type Config struct {
	Primary  StoreConfig    `yaml:"primary"`
	Replicas []TargetConfig `yaml:"replicas"`
	Producer ProducerConfig `yaml:"producer"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	UI       UIConfig       `yaml:"ui"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StoreConfig identifies the primary store file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TargetConfig identifies one monitored replica.
type TargetConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// ProducerConfig controls the probe writer cadence.
type ProducerConfig struct {
	IntervalMS   int `yaml:"interval_ms"`
	RetryDelayMS int `yaml:"retry_delay_ms"`
	OpTimeoutMS  int `yaml:"op_timeout_ms"`
}

// MonitorConfig controls the per-target poll loops.
type MonitorConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms"`
	OpTimeoutMS    int `yaml:"op_timeout_ms"`
}

// UIConfig controls the dashboard.
type UIConfig struct {
	Mode      string `yaml:"mode"`    // ansi | tcell
	Charset   string `yaml:"charset"` // auto | unicode | extended | ascii
	RefreshMS int    `yaml:"refresh_ms"`
	Color     bool   `yaml:"color"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
}

// LoggingConfig controls file logging and diagnostic dumps. While the
// dashboard owns the tty, all log output goes to File.
type LoggingConfig struct {
	File    string `yaml:"file"`
	DumpDir string `yaml:"dump_dir"`
}

const maxReplicas = 8

var uiModes = []string{"ansi", "tcell"}
var charsets = []string{"auto", "unicode", "extended", "ascii"}

// Load reads, defaults, and validates the configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Primary.Path == "" {
		c.Primary.Path = "data/primary.db"
	}
	if c.Producer.IntervalMS <= 0 {
		c.Producer.IntervalMS = 1000
	}
	if c.Producer.RetryDelayMS <= 0 {
		c.Producer.RetryDelayMS = 2000
	}
	if c.Producer.OpTimeoutMS <= 0 {
		c.Producer.OpTimeoutMS = 5000
	}
	if c.Monitor.PollIntervalMS <= 0 {
		c.Monitor.PollIntervalMS = 1000
	}
	if c.Monitor.OpTimeoutMS <= 0 {
		c.Monitor.OpTimeoutMS = 5000
	}
	if c.UI.Mode == "" {
		c.UI.Mode = "ansi"
	}
	if c.UI.Charset == "" {
		c.UI.Charset = "auto"
	}
	if c.UI.RefreshMS <= 0 {
		c.UI.RefreshMS = 250
	}
	if c.UI.MinWidth <= 0 {
		c.UI.MinWidth = 60
	}
	if c.UI.MinHeight <= 0 {
		c.UI.MinHeight = 14
	}
	if c.Logging.File == "" {
		c.Logging.File = "replwatch.log"
	}
	if c.Logging.DumpDir == "" {
		c.Logging.DumpDir = "."
	}
}

// Validate reports the first configuration problem found. Enum-ish fields
// include a nearest-match suggestion so typos are easy to spot.
func (c *Config) Validate() error {
	if len(c.Replicas) == 0 {
		return fmt.Errorf("config: at least one replica is required")
	}
	if len(c.Replicas) > maxReplicas {
		return fmt.Errorf("config: %d replicas configured, maximum is %d", len(c.Replicas), maxReplicas)
	}
	seen := make(map[string]bool, len(c.Replicas))
	for i, r := range c.Replicas {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("config: replicas[%d] has no name", i)
		}
		if strings.TrimSpace(r.Path) == "" {
			return fmt.Errorf("config: replica %q has no path", r.Name)
		}
		if r.Path == c.Primary.Path {
			return fmt.Errorf("config: replica %q uses the primary path", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("config: duplicate replica name %q", r.Name)
		}
		seen[r.Name] = true
	}
	if !contains(uiModes, c.UI.Mode) {
		return fmt.Errorf("config: unknown ui.mode %q%s", c.UI.Mode, suggest(c.UI.Mode, uiModes))
	}
	if !contains(charsets, c.UI.Charset) {
		return fmt.Errorf("config: unknown ui.charset %q%s", c.UI.Charset, suggest(c.UI.Charset, charsets))
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// suggest returns a " (did you mean ...?)" suffix when a known value sits
// within edit distance 3 of the given one.
func suggest(value string, known []string) string {
	best := ""
	bestDist := 4
	for _, k := range known {
		if d := levenshtein.ComputeDistance(strings.ToLower(value), k); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

// Print writes a one-screen summary of the effective configuration.
func (c *Config) Print() {
	fmt.Printf("Primary: %s\n", c.Primary.Path)
	for _, r := range c.Replicas {
		fmt.Printf("Replica: %s (%s)\n", r.Name, r.Path)
	}
	fmt.Printf("Producer: every %dms (retry %dms)\n", c.Producer.IntervalMS, c.Producer.RetryDelayMS)
	fmt.Printf("Monitor: poll %dms, timeout %dms\n", c.Monitor.PollIntervalMS, c.Monitor.OpTimeoutMS)
	fmt.Printf("UI: %s, %s charset, refresh %dms\n", c.UI.Mode, c.UI.Charset, c.UI.RefreshMS)
}
