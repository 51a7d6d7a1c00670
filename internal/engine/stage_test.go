package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/payload"
	"github.com/clementcyberknight/db-stress-test/internal/testutil"
)

func newTestRunner(builder PoolBuilder, maxErrorRate float64) *StageRunner {
	return NewStageRunner(builder, payload.NewGenerator(64), time.Second, maxErrorRate, testutil.TestLogger())
}

func TestStageRunner_AllSuccess(t *testing.T) {
	pool := &fakePool{}
	runner := newTestRunner(&fakeBuilder{pool: pool}, 0.05)

	res, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 10, RequestCount: 500})
	if err != nil {
		t.Fatalf("Expected stage to run, got error %v", err)
	}

	if res.Completed != 500 {
		t.Errorf("Expected 500 completed, got %d", res.Completed)
	}
	if res.Errors != 0 {
		t.Errorf("Expected 0 errors, got %d", res.Errors)
	}
	if res.ErrorRate != 0 {
		t.Errorf("Expected error rate 0, got %f", res.ErrorRate)
	}
	if res.CriticalFailure {
		t.Error("Expected a clean stage not to be critical")
	}
	if res.Throughput <= 0 {
		t.Errorf("Expected positive throughput, got %f", res.Throughput)
	}
	if res.AvgLatency <= 0 {
		t.Errorf("Expected positive average latency, got %v", res.AvgLatency)
	}
	if pool.unreleased() != 0 {
		t.Error("Expected every handle to be released exactly once")
	}
	if !pool.closed {
		t.Error("Expected the stage pool to be closed at stage end")
	}
}

func TestStageRunner_PoolSizedToConcurrency(t *testing.T) {
	builder := &fakeBuilder{pool: &fakePool{}}
	runner := newTestRunner(builder, 0.05)

	if _, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 37, RequestCount: 10}); err != nil {
		t.Fatalf("Expected stage to run, got error %v", err)
	}

	if len(builder.builds) != 1 || builder.builds[0] != 37 {
		t.Errorf("Expected exactly one pool built with concurrency 37, got %v", builder.builds)
	}
}

func TestStageRunner_SingleConnectionErrorIsCritical(t *testing.T) {
	// One resource-exhaustion failure among 2000 requests: the rate is far
	// below the threshold, yet the stage must be critical.
	capacity := errors.New("too many clients")
	pool := &fakePool{writeErr: capacity, failWrites: 1}
	builder := &fakeBuilder{pool: pool, classify: func(err error) FailureCategory {
		if errors.Is(err, capacity) {
			return FailureResourceExhaustion
		}
		return FailureOther
	}}
	runner := newTestRunner(builder, 0.05)

	res, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 10, RequestCount: 2000})
	if err != nil {
		t.Fatalf("Expected stage to run, got error %v", err)
	}

	if res.ConnectionErrors != 1 {
		t.Fatalf("Expected exactly 1 connection error, got %d", res.ConnectionErrors)
	}
	if res.ErrorRate > 0.05 {
		t.Fatalf("Expected error rate below threshold, got %f", res.ErrorRate)
	}
	if !res.CriticalFailure {
		t.Error("Expected any connection error to make the stage critical")
	}
}

func TestStageRunner_ErrorRateThresholdIsStrict(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name         string
		failWrites   int64
		wantCritical bool
	}{
		{"below_threshold", 4, false},
		{"exactly_at_threshold", 5, false}, // 5/100 == 0.05, strict comparison
		{"above_threshold", 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := &fakePool{writeErr: boom, failWrites: tt.failWrites}
			runner := newTestRunner(&fakeBuilder{pool: pool}, 0.05)

			res, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 1, RequestCount: 100})
			if err != nil {
				t.Fatalf("Expected stage to run, got error %v", err)
			}

			if res.Errors != tt.failWrites {
				t.Fatalf("Expected %d errors, got %d", tt.failWrites, res.Errors)
			}
			if res.ConnectionErrors != 0 {
				t.Fatalf("Expected no connection errors, got %d", res.ConnectionErrors)
			}
			if res.CriticalFailure != tt.wantCritical {
				t.Errorf("Expected critical=%v at error rate %f", tt.wantCritical, res.ErrorRate)
			}
		})
	}
}

func TestStageRunner_BuildFailureIsRunLevel(t *testing.T) {
	boom := errors.New("cannot reach store")
	runner := newTestRunner(&fakeBuilder{buildErr: boom}, 0.05)

	if _, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 10, RequestCount: 100}); !errors.Is(err, boom) {
		t.Errorf("Expected pool construction failure to propagate, got %v", err)
	}
}

func TestStageRunner_RejectsInvalidConfig(t *testing.T) {
	runner := newTestRunner(&fakeBuilder{pool: &fakePool{}}, 0.05)

	if _, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 0, RequestCount: 100}); err == nil {
		t.Error("Expected zero concurrency to be rejected")
	}
	if _, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 5, RequestCount: -1}); err == nil {
		t.Error("Expected negative request count to be rejected")
	}
}

func TestStageRunner_ZeroRequests(t *testing.T) {
	runner := newTestRunner(&fakeBuilder{pool: &fakePool{}}, 0.05)

	res, err := runner.RunStage(context.Background(), StageConfig{Concurrency: 5, RequestCount: 0})
	if err != nil {
		t.Fatalf("Expected empty stage to run, got error %v", err)
	}

	if res.Completed != 0 || res.Errors != 0 {
		t.Errorf("Expected empty stage totals, got completed=%d errors=%d", res.Completed, res.Errors)
	}
	if res.ErrorRate != 0 {
		t.Errorf("Expected error rate 0 for empty stage, got %f", res.ErrorRate)
	}
	if res.AvgLatency != 0 {
		t.Errorf("Expected zero average latency for empty stage, got %v", res.AvgLatency)
	}
	if res.CriticalFailure {
		t.Error("Expected empty stage not to be critical")
	}
}
