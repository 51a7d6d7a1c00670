package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/logging"
)

// TerminalState names why a run stopped. Both values are valid, non-error
// outcomes of a complete run.
type TerminalState string

const (
	StoppedAtCeiling TerminalState = "stopped_at_ceiling"
	StoppedOnFailure TerminalState = "stopped_on_failure"
)

// RunReport is the externally meaningful artifact of a run: one StageResult
// per executed stage in execution order, plus the terminal verdict.
type RunReport struct {
	Stages            []StageResult `json:"stages"`
	Terminal          TerminalState `json:"terminal"`
	StableConcurrency int           `json:"stable_concurrency"` // last level without critical failure, 0 if none
	FailedConcurrency int           `json:"failed_concurrency"` // level that triggered the stop, 0 if none
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
}

// StageExecutor runs one stage. Implemented by StageRunner.
type StageExecutor interface {
	RunStage(ctx context.Context, cfg StageConfig) (*StageResult, error)
}

// RunObserver receives results as the run progresses. Used by the status
// API; a nil observer is ignored.
type RunObserver interface {
	StageCompleted(res StageResult)
	RunFinished(rep RunReport)
}

// RampConfig parameterizes a progressive run.
type RampConfig struct {
	InitialConcurrency int
	ConcurrencyStep    int
	ConcurrencyCeiling int
	RequestsPerStage   int
	Cooldown           time.Duration
}

// ProgressiveController drives stages at increasing concurrency until the
// first critical failure or the configured ceiling.
type ProgressiveController struct {
	runner   StageExecutor
	prov     Provisioner
	cfg      RampConfig
	logger   *logging.Logger
	observer RunObserver
}

func NewProgressiveController(runner StageExecutor, prov Provisioner, cfg RampConfig, logger *logging.Logger) *ProgressiveController {
	return &ProgressiveController{
		runner: runner,
		prov:   prov,
		cfg:    cfg,
		logger: logger,
	}
}

// SetObserver registers an observer for live run state. Must be called
// before Run.
func (c *ProgressiveController) SetObserver(obs RunObserver) {
	c.observer = obs
}

// Run executes the ramp. The returned error covers setup failures only:
// schema provisioning and stage pool construction. A run stopped by a
// critical failure is a complete, successful run.
func (c *ProgressiveController) Run(ctx context.Context) (*RunReport, error) {
	if err := c.prov.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("schema provisioning failed: %w", err)
	}

	report := &RunReport{StartedAt: time.Now()}
	previous := 0

	for concurrency := c.cfg.InitialConcurrency; ; concurrency += c.cfg.ConcurrencyStep {
		res, err := c.runner.RunStage(ctx, StageConfig{
			Concurrency:  concurrency,
			RequestCount: c.cfg.RequestsPerStage,
		})
		if err != nil {
			return nil, err
		}

		report.Stages = append(report.Stages, *res)
		if c.observer != nil {
			c.observer.StageCompleted(*res)
		}

		if res.CriticalFailure {
			report.Terminal = StoppedOnFailure
			report.FailedConcurrency = concurrency
			report.StableConcurrency = previous
			c.logger.Warn("Run stopped on critical failure",
				"failed_concurrency", concurrency,
				"stable_concurrency", previous,
			)
			break
		}
		previous = concurrency

		if concurrency >= c.cfg.ConcurrencyCeiling {
			report.Terminal = StoppedAtCeiling
			report.StableConcurrency = concurrency
			c.logger.Info("Run reached concurrency ceiling",
				"ceiling", c.cfg.ConcurrencyCeiling,
			)
			break
		}

		// Let the store settle between stages. Noise reduction, not a
		// correctness requirement.
		if c.cfg.Cooldown > 0 {
			select {
			case <-time.After(c.cfg.Cooldown):
			case <-ctx.Done():
			}
		}
	}

	report.FinishedAt = time.Now()
	if c.observer != nil {
		c.observer.RunFinished(*report)
	}
	return report, nil
}

// SingleStageController runs the engine once at a fixed concurrency. It
// reuses the same StageRunner primitive as the progressive ramp.
type SingleStageController struct {
	runner   StageExecutor
	prov     Provisioner
	cfg      StageConfig
	logger   *logging.Logger
	observer RunObserver
}

func NewSingleStageController(runner StageExecutor, prov Provisioner, cfg StageConfig, logger *logging.Logger) *SingleStageController {
	return &SingleStageController{
		runner: runner,
		prov:   prov,
		cfg:    cfg,
		logger: logger,
	}
}

// SetObserver registers an observer for live run state. Must be called
// before Run.
func (c *SingleStageController) SetObserver(obs RunObserver) {
	c.observer = obs
}

func (c *SingleStageController) Run(ctx context.Context) (*RunReport, error) {
	if err := c.prov.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("schema provisioning failed: %w", err)
	}

	report := &RunReport{StartedAt: time.Now()}

	res, err := c.runner.RunStage(ctx, c.cfg)
	if err != nil {
		return nil, err
	}

	report.Stages = append(report.Stages, *res)
	if c.observer != nil {
		c.observer.StageCompleted(*res)
	}

	if res.CriticalFailure {
		report.Terminal = StoppedOnFailure
		report.FailedConcurrency = c.cfg.Concurrency
	} else {
		report.Terminal = StoppedAtCeiling
		report.StableConcurrency = c.cfg.Concurrency
	}

	report.FinishedAt = time.Now()
	if c.observer != nil {
		c.observer.RunFinished(*report)
	}
	return report, nil
}
