package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/payload"
	"github.com/clementcyberknight/db-stress-test/internal/store"
	"github.com/clementcyberknight/db-stress-test/internal/testutil"
)

func setupBenchmarkBuilder(b *testing.B) store.Builder {
	cfg := testutil.TestConfig()

	builder, err := store.NewBuilder(&cfg.Store, testutil.TestLogger())
	if err != nil {
		b.Fatalf("Failed to create builder: %v", err)
	}
	b.Cleanup(func() {
		builder.Close()
	})

	if err := builder.EnsureSchema(context.Background()); err != nil {
		b.Fatalf("Failed to provision store: %v", err)
	}
	return builder
}

// Engine Benchmarks over the embedded backend

func BenchmarkActionExecutor(b *testing.B) {
	builder := setupBenchmarkBuilder(b)
	ctx := context.Background()

	pool, err := builder.Build(ctx, 1)
	if err != nil {
		b.Fatalf("Failed to build pool: %v", err)
	}
	defer pool.Close()

	exec := engine.NewActionExecutor(pool, payload.NewGenerator(256), builder.Classify, time.Second)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		outcome := exec.Execute(ctx, fmt.Sprintf("bench-%d", i))
		if !outcome.Success() {
			b.Fatalf("Action failed: %v", outcome.Err)
		}
	}
}

func BenchmarkStage(b *testing.B) {
	for _, concurrency := range []int{1, 8, 32} {
		b.Run(fmt.Sprintf("concurrency-%d", concurrency), func(b *testing.B) {
			builder := setupBenchmarkBuilder(b)
			runner := engine.NewStageRunner(builder, payload.NewGenerator(256), time.Second, 0.05, testutil.TestLogger())

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				res, err := runner.RunStage(context.Background(), engine.StageConfig{
					Concurrency:  concurrency,
					RequestCount: 1000,
				})
				if err != nil {
					b.Fatalf("Stage failed: %v", err)
				}
				if res.CriticalFailure {
					b.Fatalf("Stage turned critical: %d connection errors", res.ConnectionErrors)
				}
			}
		})
	}
}

func BenchmarkPayloadGeneration(b *testing.B) {
	gen := payload.NewGenerator(256)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = gen.Generate(fmt.Sprintf("bench-%d", i))
	}
}
