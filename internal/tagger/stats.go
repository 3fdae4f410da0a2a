package tagger

import (
	"slices"
	"sync"
	"time"
)

// call is one recorded tagger request.
type call struct {
	at      time.Time
	ms      int64
	entries int
	failed  bool
}

// StatsSnapshot aggregates the calls inside the rolling window.
type StatsSnapshot struct {
	Window string `json:"window"`
	Count  int    `json:"count"`

	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`

	Failures    int     `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
	Entries     int     `json:"entries"` // tokens returned by successful calls
}

// Stats keeps tagger call latencies for a rolling window. Safe for
// concurrent use.
type Stats struct {
	mu     sync.Mutex
	window time.Duration
	calls  []call
}

// NewStats keeps calls younger than window (one hour when window <= 0).
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, calls: make([]call, 0, 256)}
}

// Record adds one tagger call: its latency, the number of entries it
// returned and whether it failed.
func (s *Stats) Record(ms int64, entries int, failed bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(now)
	s.calls = append(s.calls, call{at: now, ms: max(ms, 0), entries: entries, failed: failed})
}

// Snapshot summarizes the calls still inside the window.
func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()
	s.mu.Lock()
	s.expire(now)
	calls := slices.Clone(s.calls)
	s.mu.Unlock()

	snap := StatsSnapshot{Window: s.window.String(), Count: len(calls)}
	if len(calls) == 0 {
		return snap
	}

	latencies := make([]int64, len(calls))
	var total int64
	for i, c := range calls {
		latencies[i] = c.ms
		total += c.ms
		if c.failed {
			snap.Failures++
			continue
		}
		snap.Entries += c.entries
	}
	slices.Sort(latencies)

	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.AvgMs = float64(total) / float64(len(latencies))
	snap.P50Ms = percentile(latencies, 50)
	snap.P95Ms = percentile(latencies, 95)
	snap.P99Ms = percentile(latencies, 99)
	snap.FailureRate = float64(snap.Failures) / float64(len(calls))
	return snap
}

// expire drops calls older than the window. Callers hold mu.
func (s *Stats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool { return c.at.Before(cutoff) })
}

// percentile interpolates linearly between the two closest ranks of an
// ascending slice.
func percentile(sorted []int64, pct float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[n-1])
	}
	pos := float64(n-1) * pct / 100
	i := int(pos)
	if i+1 >= n {
		return float64(sorted[i])
	}
	frac := pos - float64(i)
	return float64(sorted[i]) + frac*float64(sorted[i+1]-sorted[i])
}
