package reliability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"nullclaw/internal/domain"
	"nullclaw/internal/infra/config"
)

func testReliabilityConfig() config.ReliabilityConfig {
	return config.ReliabilityConfig{
		MaxRetries:          3,
		BackoffBase:         time.Millisecond,
		BackoffMax:          5 * time.Millisecond,
		BackoffMultiplierFP: 2000,
		CircuitBreaker: config.CircuitBreakerConfig{
			FailureThreshold:  10,
			RecoveryTimeout:   time.Second,
			HalfOpenMaxProbes: 1,
		},
	}
}

func TestExecutorSucceedsFirstAttempt(t *testing.T) {
	e := NewExecutor(testReliabilityConfig(), slog.Default())
	calls := 0
	report, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return &domain.ToolResult{Content: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 || report.Attempts != 1 || report.Retried {
		t.Errorf("got calls=%d attempts=%d retried=%v, want 1,1,false", calls, report.Attempts, report.Retried)
	}
}

func TestExecutorRetriesRetryableToolFailure(t *testing.T) {
	e := NewExecutor(testReliabilityConfig(), slog.Default())
	calls := 0
	report, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		if calls < 3 {
			return &domain.ToolResult{IsError: true, Content: "timeout talking to upstream"}, nil
		}
		return &domain.ToolResult{Content: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 || !report.Retried || report.Attempts != 3 {
		t.Errorf("got calls=%d attempts=%d retried=%v, want 3,3,true", calls, report.Attempts, report.Retried)
	}
}

func TestExecutorDoesNotRetryNonRetryableToolFailure(t *testing.T) {
	e := NewExecutor(testReliabilityConfig(), slog.Default())
	calls := 0
	report, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return &domain.ToolResult{IsError: true, Content: "invalid argument"}, nil
	})
	if err != nil {
		t.Fatalf("Execute should not return a Go error for a tool-level failure: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for non-retryable failure)", calls)
	}
	if !report.Result.IsError {
		t.Error("expected the failed result to be returned")
	}
}

func TestExecutorPropagatesNonRetryableInfraError(t *testing.T) {
	e := NewExecutor(testReliabilityConfig(), slog.Default())
	calls := 0
	wantErr := errors.New("invalid json payload")
	_, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable infra error must not retry)", calls)
	}
}

func TestExecutorExhaustsRetriesOnRetryableInfraError(t *testing.T) {
	cfg := testReliabilityConfig()
	cfg.MaxRetries = 2
	e := NewExecutor(cfg, slog.Default())
	calls := 0
	_, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if !errors.Is(err, domain.ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecutorCircuitOpenShortCircuits(t *testing.T) {
	cfg := testReliabilityConfig()
	cfg.CircuitBreaker.FailureThreshold = 1
	e := NewExecutor(cfg, slog.Default())

	_, _ = e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		return nil, errors.New("connection refused")
	})

	calls := 0
	_, err := e.Execute(context.Background(), "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return &domain.ToolResult{Content: "ok"}, nil
	})
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 (circuit should short-circuit before calling fn)", calls)
	}
}

func TestExecutorCacheHitSkipsCall(t *testing.T) {
	cfg := testReliabilityConfig()
	cfg.Cache = config.ReliabilityCacheConfig{Enabled: true, Capacity: 10, TTL: time.Minute}
	e := NewExecutor(cfg, slog.Default())

	calls := 0
	fn := func(ctx context.Context) (*domain.ToolResult, error) {
		calls++
		return &domain.ToolResult{Content: "fresh"}, nil
	}

	args := []byte(`{"a":1}`)
	if _, err := e.Execute(context.Background(), "toolA", args, fn); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	report, err := e.Execute(context.Background(), "toolA", args, fn)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second call should hit cache)", calls)
	}
	if report.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0 for a cache hit", report.Attempts)
	}
}

func TestExecutorContextCancellationDuringBackoff(t *testing.T) {
	cfg := testReliabilityConfig()
	cfg.MaxRetries = 10
	cfg.BackoffBase = 50 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	e := NewExecutor(cfg, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := e.Execute(ctx, "toolA", nil, func(ctx context.Context) (*domain.ToolResult, error) {
		return &domain.ToolResult{IsError: true, Content: "timeout"}, nil
	})
	if err == nil {
		t.Fatal("expected context cancellation to surface as an error")
	}
}
