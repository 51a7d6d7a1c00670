package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/payload"
)

// fakeConn is a Conn whose write/read behavior is scripted per test.
type fakeConn struct {
	writeErr error
	readErr  error
	delay    time.Duration
	releases int32
}

func (c *fakeConn) WriteRecord(ctx context.Context, rec payload.Record) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.writeErr
}

func (c *fakeConn) ReadRecord(ctx context.Context, id string) error {
	return c.readErr
}

func (c *fakeConn) Release() {
	atomic.AddInt32(&c.releases, 1)
}

// fakePool hands out fakeConns and records every handle it granted so tests
// can verify release discipline.
type fakePool struct {
	acquireErr error
	writeErr   error
	readErr    error
	failWrites int64 // first N writes fail with writeErr

	mu      sync.Mutex
	granted []*fakeConn
	writes  int64
	closed  bool
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}

	conn := &fakeConn{readErr: p.readErr}
	if p.writeErr != nil {
		if p.failWrites == 0 || atomic.AddInt64(&p.writes, 1) <= p.failWrites {
			conn.writeErr = p.writeErr
		}
	}

	p.mu.Lock()
	p.granted = append(p.granted, conn)
	p.mu.Unlock()
	return conn, nil
}

func (p *fakePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// unreleased returns how many granted handles were not released exactly once.
func (p *fakePool) unreleased() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, conn := range p.granted {
		if atomic.LoadInt32(&conn.releases) != 1 {
			count++
		}
	}
	return count
}

// fakeBuilder implements PoolBuilder over a fakePool.
type fakeBuilder struct {
	pool     *fakePool
	buildErr error
	classify func(error) FailureCategory

	mu     sync.Mutex
	builds []int // concurrency of each Build call
}

func (b *fakeBuilder) Build(ctx context.Context, concurrency int) (Pool, error) {
	b.mu.Lock()
	b.builds = append(b.builds, concurrency)
	b.mu.Unlock()

	if b.buildErr != nil {
		return nil, b.buildErr
	}
	return b.pool, nil
}

func (b *fakeBuilder) Classify(err error) FailureCategory {
	if b.classify != nil {
		return b.classify(err)
	}
	return FailureOther
}

// scriptedExecutor returns a fixed outcome per call, recording task ids.
type scriptedExecutor struct {
	outcome func(taskID string) Outcome

	mu      sync.Mutex
	taskIDs []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, taskID string) Outcome {
	e.mu.Lock()
	e.taskIDs = append(e.taskIDs, taskID)
	e.mu.Unlock()

	if e.outcome != nil {
		return e.outcome(taskID)
	}
	return Outcome{Duration: time.Millisecond}
}

// scriptedStage implements StageExecutor, failing at a chosen concurrency.
type scriptedStage struct {
	failAt   int // concurrency that produces a critical failure, 0 for never
	stageErr error

	mu   sync.Mutex
	runs []StageConfig
}

func (s *scriptedStage) RunStage(ctx context.Context, cfg StageConfig) (*StageResult, error) {
	s.mu.Lock()
	s.runs = append(s.runs, cfg)
	s.mu.Unlock()

	if s.stageErr != nil {
		return nil, s.stageErr
	}

	res := &StageResult{
		Concurrency:  cfg.Concurrency,
		RequestCount: cfg.RequestCount,
		Completed:    int64(cfg.RequestCount),
		Elapsed:      time.Millisecond,
		Throughput:   1000,
	}
	if s.failAt != 0 && cfg.Concurrency >= s.failAt {
		res.Completed = 0
		res.Errors = int64(cfg.RequestCount)
		res.ConnectionErrors = 1
		res.ErrorRate = 1
		res.CriticalFailure = true
	}
	return res, nil
}

// okProvisioner and failProvisioner script schema setup.
type okProvisioner struct {
	calls int32
}

func (p *okProvisioner) EnsureSchema(ctx context.Context) error {
	atomic.AddInt32(&p.calls, 1)
	return nil
}

type failProvisioner struct {
	err error
}

func (p *failProvisioner) EnsureSchema(ctx context.Context) error {
	return p.err
}

// recordingObserver captures everything the controller publishes.
type recordingObserver struct {
	mu       sync.Mutex
	stages   []StageResult
	finished []RunReport
}

func (o *recordingObserver) StageCompleted(res StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, res)
}

func (o *recordingObserver) RunFinished(rep RunReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, rep)
}
