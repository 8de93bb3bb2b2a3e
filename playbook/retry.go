// ABOUTME: Retry policy and exponential backoff delay calculation for node execution.
// ABOUTME: Provides preset policies and a context-aware sleep used between attempts.
package playbook

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how many times a failing node execution is retried
// on the same model tier before the engine considers a fallback.
type RetryPolicy struct {
	MaxAttempts int // minimum 1 (1 = no retries)
	Backoff     BackoffConfig
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DelayForAttempt calculates the delay for a given attempt number (0-indexed).
// The formula is InitialDelay * Factor^attempt, capped at MaxDelay. With
// Jitter enabled, the delay is randomized in [0, calculated_delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns a policy with a single attempt and no retries.
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
		},
	}
}

// RetryPolicyStandard returns the default policy: 3 attempts with jittered
// exponential backoff.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
	}
}

// sleepWithContext sleeps for the given duration, returning early if the
// context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
