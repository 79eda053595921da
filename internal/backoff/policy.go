// Package backoff computes the exponential-backoff delay internal/llm.Resilient
// waits between retries of a transient ChatCompletion failure, per spec.md §1:
// the ChatCompletion port, not the Agent Controller, owns retry policy.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy is the exponential-backoff schedule used to space out retries of a
// ChatCompletion call that failed with models.ErrLLMError. Attempt 1 waits
// InitialMs; each subsequent attempt's base delay grows by Factor, clamped to
// MaxMs, with up to Jitter*base added at random so a burst of agents hitting
// the same provider don't all retry in lockstep.
type Policy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// BackoffPolicy is Policy's name in internal/config and internal/llm, kept as
// an alias so RetryConfig.Policy() and llm.WithRetryPolicy don't need to
// track a rename across package boundaries.
type BackoffPolicy = Policy

// DefaultPolicy is applied by llm.NewResilient when no --retry-policy flag
// or config.RetryConfig override is supplied: 100ms initial delay, doubling
// up to a 30s ceiling, with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{InitialMs: 100, MaxMs: 30000, Factor: 2, Jitter: 0.1}
}

// ComputeBackoff returns the delay before retry number attempt (1-indexed;
// attempt 1 is the delay before the *second* call). It delegates to
// computeBackoff with a process-global random source; tests that need a
// deterministic value call computeBackoff directly.
func ComputeBackoff(policy Policy, attempt int) time.Duration {
	return computeBackoff(policy, attempt, rand.Float64()) // #nosec G404 -- jitter spacing, not a security control
}

// computeBackoff is ComputeBackoff with the jitter draw passed in, so
// policy_test.go can assert exact durations instead of ranges.
func computeBackoff(policy Policy, attempt int, jitterDraw float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	withJitter := base + base*policy.Jitter*jitterDraw
	clamped := math.Min(policy.MaxMs, withJitter)
	return time.Duration(math.Round(clamped)) * time.Millisecond
}
