package engine

import (
	"sync"
	"time"
)

// StageStats accumulates outcomes for one stage. Workers keep a private
// StageStats each and merge into the shared Collector exactly once, when
// they exit at exhaustion, so no per-request synchronization distorts the
// latency measurements.
type StageStats struct {
	Completed        int64
	Errors           int64
	ConnectionErrors int64
	LatencySum       time.Duration
	Latencies        []time.Duration
}

// Record folds one outcome into the accumulator. Not safe for concurrent
// use; each worker owns its own StageStats.
func (s *StageStats) Record(o Outcome) {
	if o.Success() {
		s.Completed++
		s.LatencySum += o.Duration
		s.Latencies = append(s.Latencies, o.Duration)
		return
	}
	s.Errors++
	if o.ConnectionFailure() {
		s.ConnectionErrors++
	}
}

// add folds another accumulator into this one.
func (s *StageStats) add(other *StageStats) {
	s.Completed += other.Completed
	s.Errors += other.Errors
	s.ConnectionErrors += other.ConnectionErrors
	s.LatencySum += other.LatencySum
	s.Latencies = append(s.Latencies, other.Latencies...)
}

// Collector is the stage-level aggregate. Merge is the single
// synchronization point per worker.
type Collector struct {
	mu    sync.Mutex
	total StageStats
}

func NewCollector() *Collector {
	return &Collector{}
}

// Merge folds a worker's local accumulator into the stage total.
func (c *Collector) Merge(local *StageStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total.add(local)
}

// Snapshot returns a copy of the aggregate. Totals are only guaranteed
// complete once every worker has merged, which the worker pool's completion
// barrier ensures.
func (c *Collector) Snapshot() StageStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.total
	out.Latencies = make([]time.Duration, len(c.total.Latencies))
	copy(out.Latencies, c.total.Latencies)
	return out
}
