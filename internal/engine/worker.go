package engine

import (
	"context"
	"fmt"
	"sync"
)

// WorkerPool spawns a fixed number of concurrent workers that drain a
// TaskSource through an Executor. Run returns only after every worker has
// independently observed exhaustion and merged its local stats: this is the
// stage's completion barrier. Workers are never cancelled preemptively; a
// stage always drains to its full request count.
type WorkerPool struct {
	concurrency int
	source      *TaskSource
	exec        Executor
	collector   *Collector
	stageTag    string
}

// NewWorkerPool builds a pool. stageTag is mixed into every task id so ids
// stay unique across stages of the same run.
func NewWorkerPool(concurrency int, source *TaskSource, exec Executor, collector *Collector, stageTag string) *WorkerPool {
	return &WorkerPool{
		concurrency: concurrency,
		source:      source,
		exec:        exec,
		collector:   collector,
		stageTag:    stageTag,
	}
}

// Run executes the worker loop at the configured concurrency and blocks
// until all workers exit.
func (p *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			local := &StageStats{}
			defer p.collector.Merge(local)

			for {
				idx, ok := p.source.Next()
				if !ok {
					return
				}
				taskID := fmt.Sprintf("%s-%d", p.stageTag, idx)
				local.Record(p.exec.Execute(ctx, taskID))
			}
		}()
	}

	wg.Wait()
}
