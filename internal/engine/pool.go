package engine

import (
	"context"

	"github.com/clementcyberknight/db-stress-test/internal/payload"
)

// Conn is one live handle to the external store. Release must be safe to
// call exactly once per acquired handle, including after a failed operation.
type Conn interface {
	WriteRecord(ctx context.Context, rec payload.Record) error
	ReadRecord(ctx context.Context, id string) error
	Release()
}

// Pool grants at most a fixed number of live handles. Acquisition must fail
// fast once the stage's acquire deadline elapses rather than queue
// indefinitely, so the stage verdict can trigger promptly.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close()
}

// PoolBuilder constructs a stage-scoped Pool sized exactly to the stage
// concurrency, and maps backend driver errors onto the engine's failure
// taxonomy.
type PoolBuilder interface {
	Build(ctx context.Context, concurrency int) (Pool, error)
	Classify(err error) FailureCategory
}

// Provisioner performs the one-time idempotent schema setup before the first
// stage. A provisioning failure aborts the entire run.
type Provisioner interface {
	EnsureSchema(ctx context.Context) error
}

// RecordGenerator supplies the synthetic record for a task.
type RecordGenerator interface {
	Generate(taskID string) payload.Record
}
