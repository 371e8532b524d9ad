// Package monitoring gathers linking metrics, both in-flight batch counters
// and point-in-time snapshots over the store.
package monitoring

import (
	"sync/atomic"
	"time"
)

// BatchStats accumulates counters while a batch runs. All methods are safe
// for concurrent use by the batch workers.
type BatchStats struct {
	docsProcessed       atomic.Int64
	linksEmitted        atomic.Int64
	candidatesSeen      atomic.Int64
	candidatesAdmitted  atomic.Int64
	subThresholdDropped atomic.Int64
	slowPassRuns        atomic.Int64
	fetchAttempts       atomic.Int64
	fetchFailures       atomic.Int64
}

func (s *BatchStats) DocProcessed()        { s.docsProcessed.Add(1) }
func (s *BatchStats) LinksEmitted(n int)   { s.linksEmitted.Add(int64(n)) }
func (s *BatchStats) CandidateSeen()       { s.candidatesSeen.Add(1) }
func (s *BatchStats) CandidateAdmitted()   { s.candidatesAdmitted.Add(1) }
func (s *BatchStats) SubThresholdDropped() { s.subThresholdDropped.Add(1) }
func (s *BatchStats) SlowPassRun()         { s.slowPassRuns.Add(1) }
func (s *BatchStats) FetchAttempt()        { s.fetchAttempts.Add(1) }
func (s *BatchStats) FetchFailure()        { s.fetchFailures.Add(1) }

// BatchSnapshot is a point-in-time copy of the batch counters.
type BatchSnapshot struct {
	DocsProcessed       int64     `json:"docs_processed"`
	LinksEmitted        int64     `json:"links_emitted"`
	CandidatesSeen      int64     `json:"candidates_seen"`
	CandidatesAdmitted  int64     `json:"candidates_admitted"`
	SubThresholdDropped int64     `json:"sub_threshold_dropped"`
	SlowPassRuns        int64     `json:"slow_pass_runs"`
	FetchAttempts       int64     `json:"fetch_attempts"`
	FetchFailures       int64     `json:"fetch_failures"`
	CollectedAt         time.Time `json:"collected_at"`
}

// Snapshot copies the counters.
func (s *BatchStats) Snapshot() BatchSnapshot {
	return BatchSnapshot{
		DocsProcessed:       s.docsProcessed.Load(),
		LinksEmitted:        s.linksEmitted.Load(),
		CandidatesSeen:      s.candidatesSeen.Load(),
		CandidatesAdmitted:  s.candidatesAdmitted.Load(),
		SubThresholdDropped: s.subThresholdDropped.Load(),
		SlowPassRuns:        s.slowPassRuns.Load(),
		FetchAttempts:       s.fetchAttempts.Load(),
		FetchFailures:       s.fetchFailures.Load(),
		CollectedAt:         time.Now().UTC(),
	}
}
