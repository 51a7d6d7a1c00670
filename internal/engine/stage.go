package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/logging"
)

// StageConfig describes one concurrency level. Immutable once a stage starts.
type StageConfig struct {
	Concurrency  int `json:"concurrency"`
	RequestCount int `json:"request_count"`
}

func (c StageConfig) validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("stage concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RequestCount < 0 {
		return fmt.Errorf("stage request count must not be negative, got %d", c.RequestCount)
	}
	return nil
}

// StageResult is the immutable record of one executed stage.
type StageResult struct {
	Concurrency      int           `json:"concurrency"`
	RequestCount     int           `json:"request_count"`
	Completed        int64         `json:"completed"`
	Errors           int64         `json:"errors"`
	ConnectionErrors int64         `json:"connection_errors"`
	Elapsed          time.Duration `json:"elapsed"`
	Throughput       float64       `json:"throughput"` // completed operations per second
	AvgLatency       time.Duration `json:"avg_latency"`
	Latency          *LatencyStats `json:"latency"`
	ErrorRate        float64       `json:"error_rate"`
	CriticalFailure  bool          `json:"critical_failure"`
}

// StageRunner orchestrates one concurrency level: it builds a pool sized to
// the stage, runs the worker pool to the completion barrier, and derives the
// stage verdict. The TaskSource and Collector it creates are discarded at
// stage end; nothing leaks across stages.
type StageRunner struct {
	builder      PoolBuilder
	gen          RecordGenerator
	opTimeout    time.Duration
	maxErrorRate float64
	logger       *logging.Logger
}

func NewStageRunner(builder PoolBuilder, gen RecordGenerator, opTimeout time.Duration, maxErrorRate float64, logger *logging.Logger) *StageRunner {
	return &StageRunner{
		builder:      builder,
		gen:          gen,
		opTimeout:    opTimeout,
		maxErrorRate: maxErrorRate,
		logger:       logger,
	}
}

// RunStage executes one stage. The returned error covers setup failures only
// (invalid config, pool construction); per-task failures are folded into the
// StageResult.
func (r *StageRunner) RunStage(ctx context.Context, cfg StageConfig) (*StageResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Pool sized exactly to the stage concurrency: the run probes the
	// store's behavior at that concurrency, not above it.
	pool, err := r.builder.Build(ctx, cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to build stage pool: %w", err)
	}
	defer pool.Close()

	r.logger.StageStart(cfg.Concurrency, cfg.RequestCount)

	source := NewTaskSource(int64(cfg.RequestCount))
	collector := NewCollector()
	exec := NewActionExecutor(pool, r.gen, r.builder.Classify, r.opTimeout)

	start := time.Now()
	stageTag := fmt.Sprintf("c%d-%d", cfg.Concurrency, start.UnixNano())
	NewWorkerPool(cfg.Concurrency, source, exec, collector, stageTag).Run(ctx)
	elapsed := time.Since(start)

	stats := collector.Snapshot()
	result := deriveResult(cfg, stats, elapsed, r.maxErrorRate)

	r.logger.StageEnd(cfg.Concurrency, result.Throughput, result.ErrorRate, result.CriticalFailure, elapsed)

	return result, nil
}

// deriveResult computes the stage's derived metrics and its critical-failure
// verdict. Any connection-class error is critical regardless of rate: one
// occurrence already signals that the store's resource limit was reached.
// Generic errors only turn critical above the configured rate threshold
// (strict inequality).
func deriveResult(cfg StageConfig, stats StageStats, elapsed time.Duration, maxErrorRate float64) *StageResult {
	result := &StageResult{
		Concurrency:      cfg.Concurrency,
		RequestCount:     cfg.RequestCount,
		Completed:        stats.Completed,
		Errors:           stats.Errors,
		ConnectionErrors: stats.ConnectionErrors,
		Elapsed:          elapsed,
		Latency:          computeLatencyStats(stats.Latencies),
	}

	if elapsed > 0 {
		result.Throughput = float64(stats.Completed) / elapsed.Seconds()
	}
	if stats.Completed > 0 {
		result.AvgLatency = stats.LatencySum / time.Duration(stats.Completed)
	}
	if cfg.RequestCount > 0 {
		result.ErrorRate = float64(stats.Errors) / float64(cfg.RequestCount)
	}

	result.CriticalFailure = stats.ConnectionErrors > 0 || result.ErrorRate > maxErrorRate

	return result
}
