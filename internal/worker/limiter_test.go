package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	assert.Equal(t, 5, limiter.defaultBurst)

	l2 := NewLimiter(10, -1)
	assert.Equal(t, 5, l2.defaultBurst, "negative burst falls back to 5")
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("openai"))
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "openai"))
	require.NoError(t, limiter.Wait(ctx, "ollama"), "keys have independent budgets")
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	require.NoError(t, limiter.WaitWithDelay(context.Background(), "openai", 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)

	assert.True(t, limiter.Allow("openai"))
	assert.False(t, limiter.Allow("openai"), "second call within the same second is throttled")
	assert.True(t, limiter.Allow("ollama"))
}

func TestLimiter_ContextCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	require.True(t, limiter.Allow("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "slow"))
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetRate("fast", 1000, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("fast"))
	}
}
