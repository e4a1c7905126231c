package orchestrator

import (
	"context"
	"errors"
	"testing"

	"nullclaw/internal/domain"
)

type fakePlanner struct {
	steps []domain.TaskStep
	err   error
}

func (f *fakePlanner) Plan(ctx context.Context, t *domain.Task) ([]domain.TaskStep, error) {
	return f.steps, f.err
}

type fakeExecutor struct {
	// failUntil maps step index -> number of times to fail before succeeding.
	failUntil map[int]int
	calls     map[int]int
}

func (f *fakeExecutor) ExecuteStep(ctx context.Context, t *domain.Task, step domain.TaskStep) (string, error) {
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[step.Index]++
	if need, ok := f.failUntil[step.Index]; ok && f.calls[step.Index] <= need {
		return "", errors.New("boom")
	}
	return "ok", nil
}

type fakeVerifier struct {
	outcome domain.VerifyOutcome
}

func (f *fakeVerifier) Verify(ctx context.Context, step domain.TaskStep, output string) domain.VerifyResult {
	return domain.VerifyResult{Outcome: f.outcome}
}

func newTask() *domain.Task {
	return &domain.Task{ID: "t1", Status: domain.TaskPending}
}

func zeroDelayPolicy() domain.StepRetryPolicy {
	return domain.StepRetryPolicy{MaxRetries: 3, Backoff: domain.BackoffConstant, BaseDelayMs: 0, MaxDelayMs: 0}
}

func TestPipelineRunCompletesAllSteps(t *testing.T) {
	steps := []domain.TaskStep{{Index: 0, Label: "a"}, {Index: 1, Label: "b"}}
	p := NewPipeline(&fakePlanner{steps: steps}, &fakeExecutor{}, nil, PipelineConfig{Enabled: true, DefaultRetryPolicy: zeroDelayPolicy()}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("task.Status = %v, want completed", task.Status)
	}
}

func TestPipelineRunNoStepsCompletesImmediately(t *testing.T) {
	p := NewPipeline(&fakePlanner{steps: nil}, &fakeExecutor{}, nil, PipelineConfig{Enabled: true, DefaultRetryPolicy: zeroDelayPolicy()}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("task.Status = %v, want completed", task.Status)
	}
}

func TestPipelineRunPlannerErrorFailsTask(t *testing.T) {
	p := NewPipeline(&fakePlanner{err: errors.New("planner exploded")}, &fakeExecutor{}, nil, PipelineConfig{Enabled: true, DefaultRetryPolicy: zeroDelayPolicy()}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err == nil {
		t.Fatal("expected error")
	}
	if task.Status != domain.TaskFailed {
		t.Errorf("task.Status = %v, want failed", task.Status)
	}
}

func TestPipelineRunRetriesFailedStepUntilSuccess(t *testing.T) {
	steps := []domain.TaskStep{{Index: 0, Label: "a"}}
	exec := &fakeExecutor{failUntil: map[int]int{0: 2}} // fails twice, succeeds on 3rd call
	p := NewPipeline(&fakePlanner{steps: steps}, exec, nil, PipelineConfig{Enabled: true, DefaultRetryPolicy: zeroDelayPolicy()}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("task.Status = %v, want completed", task.Status)
	}
	if task.RetryCount != 2 {
		t.Errorf("task.RetryCount = %d, want 2", task.RetryCount)
	}
}

func TestPipelineRunExhaustsRetriesAndFails(t *testing.T) {
	steps := []domain.TaskStep{{Index: 0, Label: "a"}}
	exec := &fakeExecutor{failUntil: map[int]int{0: 99}} // never succeeds
	policy := domain.StepRetryPolicy{MaxRetries: 2, Backoff: domain.BackoffConstant, BaseDelayMs: 0}
	p := NewPipeline(&fakePlanner{steps: steps}, exec, nil, PipelineConfig{Enabled: true, DefaultRetryPolicy: policy}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err == nil {
		t.Fatal("expected error")
	}
	if task.Status != domain.TaskFailed {
		t.Errorf("task.Status = %v, want failed", task.Status)
	}
	if task.RetryCount != 2 {
		t.Errorf("task.RetryCount = %d, want 2", task.RetryCount)
	}
}

func TestPipelineRunVerifierFailureTriggersRetry(t *testing.T) {
	steps := []domain.TaskStep{{Index: 0, Label: "a"}}
	verifier := &fakeVerifier{outcome: domain.VerifyFailed}
	policy := domain.StepRetryPolicy{MaxRetries: 1, Backoff: domain.BackoffConstant, BaseDelayMs: 0}
	p := NewPipeline(&fakePlanner{steps: steps}, &fakeExecutor{}, verifier, PipelineConfig{Enabled: true, DefaultRetryPolicy: policy}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err == nil {
		t.Fatal("expected error after verifier keeps failing")
	}
	if task.Status != domain.TaskFailed {
		t.Errorf("task.Status = %v, want failed", task.Status)
	}
}

func TestPipelineRunVerifierSkippedAdvances(t *testing.T) {
	steps := []domain.TaskStep{{Index: 0, Label: "a"}}
	verifier := &fakeVerifier{outcome: domain.VerifySkipped}
	p := NewPipeline(&fakePlanner{steps: steps}, &fakeExecutor{}, verifier, PipelineConfig{Enabled: true, DefaultRetryPolicy: zeroDelayPolicy()}, nil)

	task := newTask()
	if err := p.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("task.Status = %v, want completed", task.Status)
	}
}

func TestShouldOrchestrate(t *testing.T) {
	planner := &fakePlanner{}
	exec := &fakeExecutor{}

	if ShouldOrchestrate(PipelineConfig{Enabled: false}, planner, exec) {
		t.Error("disabled config should not orchestrate")
	}
	if ShouldOrchestrate(PipelineConfig{Enabled: true}, nil, exec) {
		t.Error("missing planner should not orchestrate")
	}
	if ShouldOrchestrate(PipelineConfig{Enabled: true}, planner, nil) {
		t.Error("missing executor should not orchestrate")
	}
	if !ShouldOrchestrate(PipelineConfig{Enabled: true}, planner, exec) {
		t.Error("enabled config with both hooks should orchestrate")
	}
}
