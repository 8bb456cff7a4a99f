// ABOUTME: Process-lifetime counters for gateway tool activity.
// ABOUTME: Incremented on events, reset only by process restart.

package metrics

import "sync"

// Metrics tracks tool usage for the health report. Counters are only
// meaningful within a single process; nothing is persisted or shared.
type Metrics struct {
	mu          sync.Mutex
	attempts    int
	successes   int
	failures    int
	preflights  int
	validations int
	docsRead    map[string]struct{}
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{docsRead: make(map[string]struct{})}
}

// RecordAttempt counts an upstream REST call attempt.
func (m *Metrics) RecordAttempt() {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
}

// RecordSuccess counts a 2xx upstream response.
func (m *Metrics) RecordSuccess() {
	m.mu.Lock()
	m.successes++
	m.mu.Unlock()
}

// RecordFailure counts a failed or rejected upstream call.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

// RecordPreflight counts a preflight check invocation.
func (m *Metrics) RecordPreflight() {
	m.mu.Lock()
	m.preflights++
	m.mu.Unlock()
}

// RecordValidation counts a validation run.
func (m *Metrics) RecordValidation() {
	m.mu.Lock()
	m.validations++
	m.mu.Unlock()
}

// RecordDocRead tracks a documentation URI read; duplicates collapse.
func (m *Metrics) RecordDocRead(uri string) {
	m.mu.Lock()
	m.docsRead[uri] = struct{}{}
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Attempts    int `json:"attempts"`
	Successes   int `json:"successes"`
	Failures    int `json:"failures"`
	Preflights  int `json:"preflight_checks"`
	Validations int `json:"validations_run"`
	DocsRead    int `json:"unique_docs_read"`
}

// Snapshot returns a consistent copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Attempts:    m.attempts,
		Successes:   m.successes,
		Failures:    m.failures,
		Preflights:  m.preflights,
		Validations: m.validations,
		DocsRead:    len(m.docsRead),
	}
}
