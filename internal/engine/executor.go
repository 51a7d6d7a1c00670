package engine

import (
	"context"
	"errors"
	"time"
)

// Executor performs one unit of work and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, taskID string) Outcome
}

// ActionExecutor performs the write-then-read cycle against the stage's
// pool: acquire a handle, insert a synthetic record, read it back by id,
// release. The handle is released on every exit path; duration is measured
// from the start of the acquisition attempt to the end of the read (or to
// the failure point).
type ActionExecutor struct {
	pool      Pool
	gen       RecordGenerator
	classify  func(error) FailureCategory
	opTimeout time.Duration
}

func NewActionExecutor(pool Pool, gen RecordGenerator, classify func(error) FailureCategory, opTimeout time.Duration) *ActionExecutor {
	if classify == nil {
		classify = func(error) FailureCategory { return FailureOther }
	}
	return &ActionExecutor{
		pool:      pool,
		gen:       gen,
		classify:  classify,
		opTimeout: opTimeout,
	}
}

// Execute runs one write-then-read action for the given task id. Per-task
// failures are recorded, never propagated: the returned Outcome carries the
// classification instead. A row may remain in the store when the write
// succeeds but the read fails; no rollback is attempted.
func (e *ActionExecutor) Execute(ctx context.Context, taskID string) Outcome {
	start := time.Now()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return Outcome{
			Duration: time.Since(start),
			Err:      err,
			Category: e.classifyAcquire(err),
		}
	}
	defer conn.Release()

	rec := e.gen.Generate(taskID)

	opCtx := ctx
	if e.opTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, e.opTimeout)
		defer cancel()
	}

	if err := conn.WriteRecord(opCtx, rec); err != nil {
		return Outcome{
			Duration: time.Since(start),
			Err:      err,
			Category: e.classifyOperation(err),
		}
	}
	if err := conn.ReadRecord(opCtx, rec.ID); err != nil {
		return Outcome{
			Duration: time.Since(start),
			Err:      err,
			Category: e.classifyOperation(err),
		}
	}

	return Outcome{Duration: time.Since(start)}
}

// classifyAcquire maps acquisition failures. An elapsed acquire deadline
// means the pool could not grant a handle within its limit, which is a
// resource-exhaustion signal rather than an operation timeout.
func (e *ActionExecutor) classifyAcquire(err error) FailureCategory {
	if c := e.classify(err); c != FailureOther {
		return c
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureResourceExhaustion
	}
	return FailureOther
}

func (e *ActionExecutor) classifyOperation(err error) FailureCategory {
	if c := e.classify(err); c != FailureOther {
		return c
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureOther
}
