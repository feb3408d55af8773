// Package metrics provides lock-free in-process counters for the identity
// engine. Counters are exported via point-in-time snapshots.
package metrics

import "sync/atomic"

// MetricID indexes a specific counter.
type MetricID int

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricTwoFactorRequired
	MetricTwoFactorSuccess
	MetricTwoFactorFailure
	MetricBackupCodeUsed
	MetricTwoFactorEnabled
	MetricTwoFactorDisabled
	MetricResetRequest
	MetricResetConfirmSuccess
	MetricResetConfirmFailure

	MetricIDCount
)

// Config toggles the counter set. A disabled instance is all no-ops.
type Config struct {
	Enabled bool
}

// Metrics holds the atomic counters. The zero value is unusable; use [New].
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a deep copy of all counters at one instant.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a counter set. When cfg.Enabled is false every operation is a
// no-op and snapshots are empty.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter. Safe for concurrent use; nil-safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
