package reliability

import (
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"nullclaw/internal/infra/config"
)

func testCBConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		FailureThreshold:  3,
		RecoveryTimeout:   10 * time.Millisecond,
		HalfOpenMaxProbes: 1,
	}
}

func TestCircuitRegistryStartsClosed(t *testing.T) {
	r := NewCircuitRegistry(testCBConfig(), slog.Default())
	if !r.IsCallPermitted("toolA") {
		t.Error("expected fresh circuit to permit calls")
	}
	if r.State("toolA") != gobreaker.StateClosed {
		t.Errorf("State = %v, want StateClosed", r.State("toolA"))
	}
}

func TestCircuitRegistryOpensAfterThreshold(t *testing.T) {
	r := NewCircuitRegistry(testCBConfig(), slog.Default())
	for i := 0; i < 3; i++ {
		r.RecordFailure("toolA")
	}
	if r.IsCallPermitted("toolA") {
		t.Error("expected circuit to be open after reaching failure threshold")
	}
	if r.State("toolA") != gobreaker.StateOpen {
		t.Errorf("State = %v, want StateOpen", r.State("toolA"))
	}
}

func TestCircuitRegistryHalfOpenAfterRecoveryTimeout(t *testing.T) {
	r := NewCircuitRegistry(testCBConfig(), slog.Default())
	for i := 0; i < 3; i++ {
		r.RecordFailure("toolA")
	}

	time.Sleep(20 * time.Millisecond)

	if !r.IsCallPermitted("toolA") {
		t.Error("expected circuit to permit a half-open probe after recovery timeout")
	}
}

func TestCircuitRegistryPerToolIsolation(t *testing.T) {
	r := NewCircuitRegistry(testCBConfig(), slog.Default())
	for i := 0; i < 3; i++ {
		r.RecordFailure("toolA")
	}
	if !r.IsCallPermitted("toolB") {
		t.Error("toolB should be unaffected by toolA's open circuit")
	}
}
