package asr

import (
	"sync"
	"time"
)

// Stats tracks process-wide transcription outcomes. The running average uses
// an incremental mean computed with the post-increment success count, inside
// one locked section so the count and the average can never disagree.
type Stats struct {
	mu         sync.Mutex
	total      uint64
	successful uint64
	failed     uint64
	avg        time.Duration
}

// Snapshot is the JSON-facing view of Stats.
type Snapshot struct {
	TotalRequests     uint64  `json:"total_requests"`
	Successful        uint64  `json:"successful_transcriptions"`
	Failed            uint64  `json:"failed_transcriptions"`
	AvgProcessingSecs float64 `json:"avg_processing_time"`
}

func NewStats() *Stats {
	return &Stats{}
}

// RecordRequest counts one chain attempt, successful or not.
func (s *Stats) RecordRequest() {
	s.mu.Lock()
	s.total++
	s.mu.Unlock()
}

// RecordSuccess folds one processing time into the running average.
func (s *Stats) RecordSuccess(processing time.Duration) {
	s.mu.Lock()
	s.successful++
	n := time.Duration(s.successful)
	s.avg = ((s.avg * (n - 1)) + processing) / n
	s.mu.Unlock()
}

// RecordFailure counts one exhausted chain attempt.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

// Snapshot returns a consistent copy for stats reporting.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalRequests:     s.total,
		Successful:        s.successful,
		Failed:            s.failed,
		AvgProcessingSecs: s.avg.Seconds(),
	}
}
