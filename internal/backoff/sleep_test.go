package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepWithContext_ZeroOrNegativeReturnsImmediately(t *testing.T) {
	start := time.Now()

	assert.NoError(t, SleepWithContext(context.Background(), 0))
	assert.NoError(t, SleepWithContext(context.Background(), -time.Second))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepWithContext_SleepsForDuration(t *testing.T) {
	start := time.Now()

	err := SleepWithContext(context.Background(), 20*time.Millisecond)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepWithContext_CancelledContextReturnsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepWithContext(ctx, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSleepWithContext_ContextCancelledMidSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := SleepWithContext(ctx, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepWithBackoff_HonorsComputedDelay(t *testing.T) {
	policy := Policy{InitialMs: 15, MaxMs: 1000, Factor: 2, Jitter: 0}
	start := time.Now()

	err := SleepWithBackoff(context.Background(), policy, 1)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestSleepWithBackoff_CancelledContext(t *testing.T) {
	policy := Policy{InitialMs: 500, MaxMs: 1000, Factor: 2, Jitter: 0}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepWithBackoff(ctx, policy, 1)

	assert.ErrorIs(t, err, context.Canceled)
}
