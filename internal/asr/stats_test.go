package asr

import (
	"math"
	"testing"
	"time"
)

// The running average must equal the direct arithmetic mean after every
// success, not just satisfy the incremental update step.
func TestRunningAverageMatchesDirectMean(t *testing.T) {
	cases := [][]time.Duration{
		{42 * time.Millisecond},
		{10 * time.Millisecond, 30 * time.Millisecond},
		{5 * time.Millisecond, 15 * time.Millisecond, 25 * time.Millisecond, 35 * time.Millisecond, 45 * time.Millisecond},
	}

	for _, samples := range cases {
		stats := NewStats()
		var sum time.Duration
		for _, d := range samples {
			stats.RecordRequest()
			stats.RecordSuccess(d)
			sum += d
		}
		want := (sum / time.Duration(len(samples))).Seconds()
		got := stats.Snapshot().AvgProcessingSecs
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("after %d successes: avg %v, want direct mean %v", len(samples), got, want)
		}
	}
}

func TestFirstSuccessDoesNotDivideByZero(t *testing.T) {
	stats := NewStats()
	stats.RecordRequest()
	stats.RecordSuccess(100 * time.Millisecond)
	snap := stats.Snapshot()
	if snap.Successful != 1 {
		t.Fatalf("expected 1 success, got %d", snap.Successful)
	}
	if snap.AvgProcessingSecs != 0.1 {
		t.Fatalf("expected first sample as average, got %v", snap.AvgProcessingSecs)
	}
}

func TestFailuresDoNotAffectAverage(t *testing.T) {
	stats := NewStats()
	stats.RecordRequest()
	stats.RecordSuccess(20 * time.Millisecond)
	stats.RecordRequest()
	stats.RecordFailure()
	snap := stats.Snapshot()
	if snap.AvgProcessingSecs != 0.02 {
		t.Fatalf("failure changed the running average: %v", snap.AvgProcessingSecs)
	}
	if snap.TotalRequests != 2 || snap.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}
