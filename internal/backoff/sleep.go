package backoff

import (
	"context"
	"time"
)

// SleepWithContext blocks for duration or until ctx is cancelled, whichever
// comes first. internal/llm.Resilient uses this both for its retry backoff
// and for the wait it does between rate-limiter polls, so a cancelled
// request context unblocks a queued agent tick immediately instead of
// holding it for the full delay.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepWithBackoff waits the delay ComputeBackoff prescribes for attempt
// before Resilient.call retries a ChatCompletion request.
func SleepWithBackoff(ctx context.Context, policy Policy, attempt int) error {
	return SleepWithContext(ctx, ComputeBackoff(policy, attempt))
}
