// Package task implements step retry policy evaluation for the orchestration pipeline.
package task

import (
	"math"
	"time"

	"nullclaw/internal/domain"
)

// maxExponentialAttempt caps the exponent applied under exponential backoff,
// preventing 2^n from overflowing for a pathologically long retry run.
const maxExponentialAttempt = 63

// BackoffDelay returns the delay before retry attempt n (0-indexed: n=0 is
// the first retry), per policy.Backoff. The result is always clamped to
// policy.MaxDelayMs.
func BackoffDelay(policy domain.StepRetryPolicy, n int) time.Duration {
	base := policy.BaseDelayMs
	maxDelay := policy.MaxDelayMs

	var factor int64
	switch policy.Backoff {
	case domain.BackoffLinear:
		factor = int64(n + 1)
	case domain.BackoffExponential:
		exp := n
		if exp > maxExponentialAttempt {
			exp = maxExponentialAttempt
		}
		factor = int64(1) << uint(exp)
		if factor <= 0 {
			factor = math.MaxInt64
		}
	default: // domain.BackoffConstant and unrecognized values
		factor = 1
	}

	delayMs := base * factor
	if factor != 0 && delayMs/factor != base {
		delayMs = math.MaxInt64
	}
	if maxDelay > 0 && delayMs > maxDelay {
		delayMs = maxDelay
	}
	return time.Duration(delayMs) * time.Millisecond
}

// CanRetry reports whether a step with the given current retry count may
// attempt another retry under policy.
func CanRetry(policy domain.StepRetryPolicy, retries int) bool {
	return retries < policy.MaxRetries
}
