package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Registry is the only structure written by multiple loops and read by the
// render loop. Upserts replace whole entries; cross-entry consistency is not
// guaranteed, so the renderer may see targets from different iterations.
type Registry struct {
	mu       sync.RWMutex
	targets  map[string]TargetSnapshot
	producer ProducerStats
}

func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]TargetSnapshot)}
}

// Upsert stores snap as the complete state for key. Last write wins per key.
func (r *Registry) Upsert(key string, snap TargetSnapshot) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.targets[key] = snap
	r.mu.Unlock()
}

// Get returns the snapshot for key, ok=false when the key is unknown.
func (r *Registry) Get(key string) (TargetSnapshot, bool) {
	if r == nil {
		return TargetSnapshot{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.targets[key]
	return snap, ok
}

// GetAll returns a copy of the current target map.
func (r *Registry) GetAll() map[string]TargetSnapshot {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]TargetSnapshot, len(r.targets))
	for k, v := range r.targets {
		out[k] = v
	}
	return out
}

// SetProducer replaces the producer throughput stats.
func (r *Registry) SetProducer(stats ProducerStats) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.producer = stats
	r.mu.Unlock()
}

// Producer returns the last published producer stats.
func (r *Registry) Producer() ProducerStats {
	if r == nil {
		return ProducerStats{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.producer
}

// registryDump is the on-disk shape of a registry snapshot.
type registryDump struct {
	DumpedAt time.Time        `json:"dumped_at"`
	Producer ProducerStats    `json:"producer"`
	Targets  []TargetSnapshot `json:"targets"`
}

// DumpJSON writes the full registry state to a timestamped file in dir and
// returns the path. Diagnostics only; nothing reads these files back.
func (r *Registry) DumpJSON(dir string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("registry: nil receiver")
	}
	dump := registryDump{DumpedAt: time.Now().UTC(), Producer: r.Producer()}
	all := r.GetAll()
	dump.Targets = make([]TargetSnapshot, 0, len(all))
	for _, snap := range all {
		dump.Targets = append(dump.Targets, snap)
	}
	sort.Slice(dump.Targets, func(i, j int) bool { return dump.Targets[i].Name < dump.Targets[j].Name })

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("registry: marshal dump: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("status-%s.json", dump.DumpedAt.Format("20060102T150405Z")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("registry: write dump: %w", err)
	}
	return path, nil
}
