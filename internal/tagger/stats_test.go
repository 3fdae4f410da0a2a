package tagger

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(100, 10, false)
	stats.Record(200, 10, false)
	stats.Record(300, 10, false)
	stats.Record(400, 10, false)
	stats.Record(500, 10, false)

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(100, 10, false)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200, 10, false)
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10, 10, false)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsCountsFailuresAndEntries(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(100, 12, false)
	stats.Record(150, 0, true)
	stats.Record(120, 8, false)

	snap := stats.Snapshot()
	if snap.Count != 3 {
		t.Fatalf("expected count=3, got %d", snap.Count)
	}
	if snap.Failures != 1 {
		t.Errorf("expected failures=1, got %d", snap.Failures)
	}
	if snap.Entries != 20 {
		t.Errorf("expected entries=20, got %d", snap.Entries)
	}
}

func TestStatsFailureRate(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(100, 5, false)
	stats.Record(100, 0, true)
	stats.Record(100, 0, true)
	stats.Record(100, 5, false)

	snap := stats.Snapshot()
	if snap.FailureRate != 0.5 {
		t.Errorf("expected failure_rate=0.5, got %f", snap.FailureRate)
	}
	if snap.Window != "1h0m0s" {
		t.Errorf("expected window=1h0m0s, got %q", snap.Window)
	}
}

func TestStatsEmptySnapshot(t *testing.T) {
	snap := NewStats(0).Snapshot()
	if snap.Count != 0 || snap.FailureRate != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
