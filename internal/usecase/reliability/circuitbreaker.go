package reliability

import (
	"log/slog"
	"sync"

	"github.com/sony/gobreaker/v2"

	"nullclaw/internal/infra/config"
)

// CircuitRegistry lazily creates and holds one gobreaker circuit per tool name.
type CircuitRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*circuitResult]
	cfg      config.CircuitBreakerConfig
	logger   *slog.Logger
}

// circuitResult is the opaque payload threaded through gobreaker.Execute; the
// reliability pipeline only cares about the breaker's pass/fail bookkeeping,
// not the value itself.
type circuitResult struct{}

// NewCircuitRegistry creates a registry using cfg for every tool's breaker.
func NewCircuitRegistry(cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitRegistry {
	return &CircuitRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[*circuitResult]),
		cfg:      cfg,
		logger:   logger,
	}
}

func (r *CircuitRegistry) breaker(tool string) *gobreaker.CircuitBreaker[*circuitResult] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[tool]; ok {
		return cb
	}

	threshold := r.cfg.FailureThreshold
	probes := r.cfg.HalfOpenMaxProbes
	if probes == 0 {
		probes = 1
	}

	cb := gobreaker.NewCircuitBreaker[*circuitResult](gobreaker.Settings{
		Name:        "tool:" + tool,
		MaxRequests: probes,
		Timeout:     r.cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if r.logger != nil {
				r.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	r.breakers[tool] = cb
	return cb
}

// IsCallPermitted reports whether a call may currently proceed for tool
// without mutating breaker state. It permits the call in every state except
// open; in half-open it does not count probes against HalfOpenMaxProbes, so it
// keeps returning true until a recorded outcome closes or reopens the breaker.
func (r *CircuitRegistry) IsCallPermitted(tool string) bool {
	return r.breaker(tool).State() != gobreaker.StateOpen
}

// RecordSuccess reports a successful attempt to the tool's breaker.
func (r *CircuitRegistry) RecordSuccess(tool string) {
	_, _ = r.breaker(tool).Execute(func() (*circuitResult, error) { return &circuitResult{}, nil })
}

// RecordFailure reports a failed attempt to the tool's breaker.
func (r *CircuitRegistry) RecordFailure(tool string) {
	_, _ = r.breaker(tool).Execute(func() (*circuitResult, error) { return nil, errCircuitProbe })
}

// State returns the current breaker state for the named tool, for observability.
func (r *CircuitRegistry) State(tool string) gobreaker.State {
	return r.breaker(tool).State()
}

var errCircuitProbe = circuitProbeError{}

type circuitProbeError struct{}

func (circuitProbeError) Error() string { return "reliability: recorded failure" }
