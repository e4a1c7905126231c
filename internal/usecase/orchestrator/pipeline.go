package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"nullclaw/internal/domain"
	"nullclaw/internal/usecase/task"
)

// Planner produces the step plan for a task.
type Planner interface {
	Plan(ctx context.Context, t *domain.Task) ([]domain.TaskStep, error)
}

// Executor runs a single step and returns its raw output.
type Executor interface {
	ExecuteStep(ctx context.Context, t *domain.Task, step domain.TaskStep) (output string, err error)
}

// Verifier checks a step's output. A nil Verifier means verification is
// always skipped.
type Verifier interface {
	Verify(ctx context.Context, step domain.TaskStep, output string) domain.VerifyResult
}

// PipelineConfig controls whether orchestration runs at all, and the
// default retry policy applied to steps that don't carry their own.
type PipelineConfig struct {
	Enabled            bool
	DefaultRetryPolicy domain.StepRetryPolicy
}

// ShouldOrchestrate reports whether a task should go through the
// planner/executor/verifier pipeline, or bypass it via the direct path.
// Orchestration is disabled by default: if cfg.Enabled is false, or either
// hook is absent, the caller should dispatch the task directly instead.
func ShouldOrchestrate(cfg PipelineConfig, planner Planner, executor Executor) bool {
	return cfg.Enabled && planner != nil && executor != nil
}

// Pipeline drives a task through planning, execution, and verification.
type Pipeline struct {
	planner  Planner
	executor Executor
	verifier Verifier
	cfg      PipelineConfig
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. verifier may be nil, in which case every
// step's verification outcome is VerifySkipped.
func NewPipeline(planner Planner, executor Executor, verifier Verifier, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{planner: planner, executor: executor, verifier: verifier, cfg: cfg, logger: logger}
}

// Run drives t from idle to completed or failed, mutating t's Status,
// CurrentStep, RetryCount, and LastError as it goes.
func (p *Pipeline) Run(ctx context.Context, t *domain.Task) error {
	phase := PhaseIdle
	phase, err := phase.Transition("begin_planning", 0)
	if err != nil {
		return err
	}
	t.Status = domain.TaskRunning

	steps, err := p.planner.Plan(ctx, t)
	if err != nil {
		return p.fail(t, &phase, "Pipeline.Run: plan: "+err.Error())
	}
	t.TotalSteps = len(steps)

	phase, err = phase.Transition("plan_ready", len(steps))
	if err != nil {
		return err
	}
	if phase == PhaseCompleted {
		t.Status = domain.TaskCompleted
		return nil
	}

	retries := make([]int, len(steps))

	for i := 0; i < len(steps); {
		step := steps[i]
		t.CurrentStep = i

		output, execErr := p.executor.ExecuteStep(ctx, t, step)

		phase, err = phase.Transition("begin_verifying", 0)
		if err != nil {
			return err
		}

		var vr domain.VerifyResult
		switch {
		case execErr != nil:
			vr = domain.VerifyResult{Outcome: domain.VerifyFailed, Message: execErr.Error()}
		case p.verifier != nil:
			vr = p.verifier.Verify(ctx, step, output)
		default:
			vr = domain.VerifyResult{Outcome: domain.VerifySkipped}
		}

		switch vr.Outcome {
		case domain.VerifyPassed, domain.VerifySkipped:
			remaining := len(steps) - (i + 1)
			phase, err = phase.Transition("step_passed", remaining)
			if err != nil {
				return err
			}
			i++
			if phase == PhaseCompleted {
				t.Status = domain.TaskCompleted
				return nil
			}

		case domain.VerifyFailed, domain.VerifyErrorOutcome:
			policy := p.cfg.DefaultRetryPolicy
			if !task.CanRetry(policy, retries[i]) {
				return p.fail(t, &phase, vr.Message)
			}

			delay := task.BackoffDelay(policy, retries[i])
			retries[i]++
			t.RetryCount++

			phase, err = phase.Transition("step_retried", 0)
			if err != nil {
				return err
			}

			if p.logger != nil {
				p.logger.Debug("retrying step", "task_id", t.ID, "step", step.Index, "delay", delay)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return p.fail(t, &phase, ctx.Err().Error())
			}
		}
	}

	t.Status = domain.TaskCompleted
	return nil
}

func (p *Pipeline) fail(t *domain.Task, phase *Phase, msg string) error {
	t.Status = domain.TaskFailed
	t.LastError = msg
	*phase, _ = phase.Transition("fail", 0)
	return domain.NewSubSystemError("orchestrator", "Pipeline.Run", domain.ErrVerificationFailed, msg)
}
