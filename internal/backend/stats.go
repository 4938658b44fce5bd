package backend

import (
	"slices"
	"sync"
	"time"
)

// Operation names recorded in Stats.
const (
	OpListFiles   = "list_files"
	OpFetchChunks = "fetch_chunks"
)

type call struct {
	at     time.Time
	op     string
	ms     int64
	failed bool
}

// Latency aggregates call durations in milliseconds.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot is a point-in-time view of recent backend calls, overall
// and per operation.
type StatsSnapshot struct {
	Latency
	Failures int                `json:"failures"`
	ByOp     map[string]Latency `json:"by_op,omitempty"`
}

// Stats keeps backend calls made within a rolling window. Every attempt is
// recorded, including retries.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		calls:  make([]call, 0, 256),
		window: window,
	}
}

// Record adds one attempt of op that took d and ended with err.
func (s *Stats) Record(op string, d time.Duration, err error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.calls = append(s.calls, call{
		at:     now,
		op:     op,
		ms:     max(d.Milliseconds(), 0),
		failed: err != nil,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.calls) == 0 {
		return StatsSnapshot{}
	}

	all := make([]int64, 0, len(s.calls))
	perOp := make(map[string][]int64)
	failures := 0
	for _, c := range s.calls {
		all = append(all, c.ms)
		perOp[c.op] = append(perOp[c.op], c.ms)
		if c.failed {
			failures++
		}
	}

	snap := StatsSnapshot{
		Latency:  summarize(all),
		Failures: failures,
		ByOp:     make(map[string]Latency, len(perOp)),
	}
	for op, values := range perOp {
		snap.ByOp[op] = summarize(values)
	}
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool {
		return c.at.Before(cutoff)
	})
}

// summarize sorts values in place.
func summarize(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	slices.Sort(values)

	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
