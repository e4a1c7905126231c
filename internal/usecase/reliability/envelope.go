package reliability

import (
	"context"
	"log/slog"
	"time"

	"nullclaw/internal/domain"
	"nullclaw/internal/infra/config"
)

// ExecuteFunc is an otherwise-opaque tool call: tool.execute(args) -> Result<ToolResult>.
type ExecuteFunc func(ctx context.Context) (*domain.ToolResult, error)

// ExecutionReport is the outcome of running a call through the envelope.
type ExecutionReport struct {
	Result   *domain.ToolResult
	Attempts int
	Retried  bool
}

// Executor wraps tool calls with retry, backoff, health tracking, a circuit
// breaker, and an optional result cache.
type Executor struct {
	cfg     config.ReliabilityConfig
	health  *HealthRegistry
	circuit *CircuitRegistry
	cache   *ResultCache
	logger  *slog.Logger
}

// NewExecutor builds an Executor from cfg.
func NewExecutor(cfg config.ReliabilityConfig, logger *slog.Logger) *Executor {
	var cache *ResultCache
	if cfg.Cache.Enabled {
		cache = NewResultCache(cfg.Cache.Capacity)
	}
	return &Executor{
		cfg:     cfg,
		health:  NewHealthRegistry(),
		circuit: NewCircuitRegistry(cfg.CircuitBreaker, logger),
		cache:   cache,
		logger:  logger,
	}
}

// Health returns the health registry backing this executor, for observability.
func (e *Executor) Health() *HealthRegistry { return e.health }

// Circuit returns the circuit breaker registry backing this executor.
func (e *Executor) Circuit() *CircuitRegistry { return e.circuit }

// Execute runs fn through the reliability pipeline for the named tool. args
// is the raw tool argument payload, used only for cache keying.
func (e *Executor) Execute(ctx context.Context, tool string, args []byte, fn ExecuteFunc) (*ExecutionReport, error) {
	var cacheKey string
	if e.cache != nil {
		cacheKey = CacheKey(tool, args)
		if cached, ok := e.cache.Get(cacheKey); ok {
			return &ExecutionReport{Result: cached, Attempts: 0, Retried: false}, nil
		}
	}

	var lastResult *domain.ToolResult
	var lastErr error
	attempts := 0
	retried := false

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if !e.circuit.IsCallPermitted(tool) {
			return nil, domain.NewSubSystemError("reliability", "Executor.Execute", domain.ErrCircuitOpen, tool)
		}

		if attempt > 0 {
			retried = true
			if err := sleepBackoff(ctx, e.cfg, attempt); err != nil {
				return nil, err
			}
		}

		attempts++
		result, err := fn(ctx)

		if err != nil {
			e.health.RecordFailure(tool)
			e.circuit.RecordFailure(tool)
			lastErr = err
			lastResult = nil
			if !classifyInfraError(err) {
				return nil, err
			}
			if attempt == e.cfg.MaxRetries {
				return nil, domain.NewSubSystemError("reliability", "Executor.Execute", domain.ErrRetriesExhausted, err.Error())
			}
			continue
		}

		if result != nil && result.IsError {
			e.health.RecordFailure(tool)
			e.circuit.RecordFailure(tool)
			lastErr = nil
			lastResult = result
			retryable := result.IsRetryable || classifyResult(result.Content)
			if !retryable || attempt == e.cfg.MaxRetries {
				return &ExecutionReport{Result: result, Attempts: attempts, Retried: retried}, nil
			}
			continue
		}

		e.health.RecordSuccess(tool)
		e.circuit.RecordSuccess(tool)
		if e.cache != nil {
			e.cache.Put(cacheKey, result, e.cfg.Cache.TTL)
		}
		return &ExecutionReport{Result: result, Attempts: attempts, Retried: retried}, nil
	}

	// Unreachable: the loop always returns on its last iteration above.
	if lastErr != nil {
		return nil, lastErr
	}
	return &ExecutionReport{Result: lastResult, Attempts: attempts, Retried: retried}, nil
}

// sleepBackoff waits min(max, base * multiplier_fp^attempt / 1000^attempt),
// computed iteratively to avoid overflow, or returns ctx.Err() if cancelled first.
func sleepBackoff(ctx context.Context, cfg config.ReliabilityConfig, attempt int) error {
	d := backoffDuration(cfg, attempt)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func backoffDuration(cfg config.ReliabilityConfig, attempt int) time.Duration {
	d := cfg.BackoffBase
	mult := cfg.BackoffMultiplierFP
	if mult <= 0 {
		mult = 1000
	}
	for i := 0; i < attempt; i++ {
		d = d * time.Duration(mult) / 1000
		if cfg.BackoffMax > 0 && d > cfg.BackoffMax {
			return cfg.BackoffMax
		}
	}
	if cfg.BackoffMax > 0 && d > cfg.BackoffMax {
		return cfg.BackoffMax
	}
	return d
}
