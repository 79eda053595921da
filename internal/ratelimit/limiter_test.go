package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_AllowsUpToBurstThenDenies(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	for i := 0; i < 5; i++ {
		assert.Truef(t, bucket.Allow(), "request %d within burst should be allowed", i)
	}

	assert.False(t, bucket.Allow(), "request beyond burst should be denied")
}

func TestBucket_RefillsOverTime(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 100, BurstSize: 2, Enabled: true})

	require.True(t, bucket.Allow())
	require.True(t, bucket.Allow())
	require.False(t, bucket.Allow(), "burst of 2 should be exhausted")

	time.Sleep(50 * time.Millisecond) // 100 req/s refills ~5 tokens in 50ms

	assert.True(t, bucket.Allow(), "a token should have refilled")
}

func TestBucket_Tokens_DecreasesOnAllow(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	initial := bucket.Tokens()
	assert.InDelta(t, 5, initial, 0.01)

	bucket.Allow()

	assert.Less(t, bucket.Tokens(), initial)
}

func TestBucket_WaitTime_ZeroWhileTokensAvailable(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	assert.Equal(t, time.Duration(0), bucket.WaitTime())
}

func TestBucket_WaitTime_PositiveOnceExhausted(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	require.True(t, bucket.Allow())

	assert.Greater(t, bucket.WaitTime(), time.Duration(0))
}

func TestBucket_WaitTime_DoesNotConsumeAToken(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	// Peeking the wait time must not itself spend the one token available.
	_ = bucket.WaitTime()

	assert.True(t, bucket.Allow(), "WaitTime() must not consume the token it inspects")
}

func TestBucket_AllowN(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	assert.True(t, bucket.AllowN(3))
	assert.True(t, bucket.AllowN(2))
	assert.False(t, bucket.AllowN(1), "no tokens left after consuming the full burst")
}

func TestBucket_AllowN_NonPositiveAlwaysAllowed(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	assert.True(t, bucket.AllowN(0))
	assert.True(t, bucket.AllowN(-5))
}

func TestNewBucket_ZeroConfigAppliesDefaults(t *testing.T) {
	bucket := NewBucket(Config{Enabled: true})

	assert.True(t, bucket.Allow(), "zero RequestsPerSecond/BurstSize should fall back to usable defaults")
	assert.InDelta(t, 19, bucket.Tokens(), 1, "default burst is RequestsPerSecond(10)*2 minus the one token just spent")
}

func TestLimiter_SeparatesKeys(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		assert.Truef(t, limiter.Allow("user1"), "user1 request %d should be allowed", i)
	}
	assert.False(t, limiter.Allow("user1"), "user1 should be rate limited after its own burst")
	assert.True(t, limiter.Allow("user2"), "user2 has an independent bucket")
}

func TestLimiter_AllowN(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	assert.True(t, limiter.AllowN("user1", 5))
	assert.False(t, limiter.AllowN("user1", 1))
}

func TestLimiter_DisabledAlwaysAllows(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: false})

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow("user1"))
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 2, Enabled: true})

	limiter.Allow("user1")
	limiter.Allow("user1")
	require.False(t, limiter.Allow("user1"))

	limiter.Reset("user1")

	assert.True(t, limiter.Allow("user1"), "reset should hand the key a fresh bucket")
}

func TestLimiter_GetStatus(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	status := limiter.GetStatus("user1")

	assert.True(t, status.AllowedNow)
	assert.InDelta(t, 5, status.TokensRemaining, 0.01)
	assert.Equal(t, "user1", status.Key)
}

func TestLimiter_GetStatus_Disabled(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: false})

	status := limiter.GetStatus("user1")

	assert.True(t, status.AllowedNow)
	assert.Equal(t, time.Duration(0), status.WaitTime)
}

func TestLimiter_PrunesInactiveKeysPastMaxKeys(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 3, Enabled: true})

	// maxKeys is 10000; push past it with exhausted (non-prunable) buckets
	// so the prune pass has to skip them and still function.
	for i := 0; i < 10001; i++ {
		key := fmt.Sprintf("key-%d", i)
		for j := 0; j < 3; j++ {
			limiter.Allow(key)
		}
	}

	assert.True(t, limiter.Allow("brand-new-key"), "limiter must keep admitting new keys after a prune cycle")

	status := limiter.GetStatus("brand-new-key")
	assert.Equal(t, "brand-new-key", status.Key)

	assert.NotPanics(t, func() {
		limiter.WaitTime("brand-new-key")
		limiter.Reset("brand-new-key")
	})
}

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "channel:telegram:user:12345", CompositeKey("channel", "telegram", "user", "12345"))
	assert.Equal(t, "solo", CompositeKey("solo"))
	assert.Equal(t, "", CompositeKey())
}

func TestMultiLimiter_AllowRequiresEveryLimiter(t *testing.T) {
	global := NewLimiter(Config{RequestsPerSecond: 100, BurstSize: 10, Enabled: true})
	perUser := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 2, Enabled: true})
	multi := NewMultiLimiter(global, perUser)

	assert.True(t, multi.Allow("user1"))
	assert.True(t, multi.Allow("user1"))
	assert.False(t, multi.Allow("user1"), "the tighter per-user limiter should exhaust first")
}

func TestMultiLimiter_WaitTimeIsTheSlowestLimiter(t *testing.T) {
	fast := NewLimiter(Config{RequestsPerSecond: 100, BurstSize: 1, Enabled: true})
	slow := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})
	multi := NewMultiLimiter(fast, slow)

	multi.Allow("user1")

	assert.Greater(t, multi.WaitTime("user1"), time.Duration(0))
}
