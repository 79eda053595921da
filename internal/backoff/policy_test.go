package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeBackoff_NoJitterDoublesPerAttempt(t *testing.T) {
	policy := Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0}

	assert.Equal(t, 100*time.Millisecond, computeBackoff(policy, 1, 0))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(policy, 2, 0))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(policy, 3, 0))
	assert.Equal(t, 800*time.Millisecond, computeBackoff(policy, 4, 0))
}

func TestComputeBackoff_ClampsToMaxMs(t *testing.T) {
	policy := Policy{InitialMs: 1000, MaxMs: 3000, Factor: 2, Jitter: 0}

	assert.Equal(t, 3000*time.Millisecond, computeBackoff(policy, 10, 0))
}

func TestComputeBackoff_JitterOnlyAddsDelay(t *testing.T) {
	policy := Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.5}

	withoutJitter := computeBackoff(policy, 2, 0)
	withFullJitter := computeBackoff(policy, 2, 1)

	assert.Equal(t, 200*time.Millisecond, withoutJitter)
	assert.Equal(t, 300*time.Millisecond, withFullJitter, "jitter draw of 1.0 adds Jitter*base on top of base")
	assert.GreaterOrEqual(t, withFullJitter, withoutJitter)
}

func TestComputeBackoff_AttemptBelowOneTreatedAsFirst(t *testing.T) {
	policy := Policy{InitialMs: 50, MaxMs: 10000, Factor: 2, Jitter: 0}

	assert.Equal(t, computeBackoff(policy, 1, 0), computeBackoff(policy, 0, 0))
}

func TestComputeBackoff_UsesRandomJitterDraw(t *testing.T) {
	policy := Policy{InitialMs: 100, MaxMs: 10000, Factor: 1, Jitter: 1}

	d := ComputeBackoff(policy, 1)

	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.LessOrEqual(t, d, 200*time.Millisecond)
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, 100.0, policy.InitialMs)
	assert.Equal(t, 30000.0, policy.MaxMs)
	assert.Equal(t, 2.0, policy.Factor)
	assert.Equal(t, 0.1, policy.Jitter)
}
