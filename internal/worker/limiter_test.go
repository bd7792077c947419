package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
)

func TestLimiter_New(t *testing.T) {
	assert.Equal(t, 5, NewLimiter(10, 5).defaultBurst)
	assert.Equal(t, 5, NewLimiter(10, -1).defaultBurst)
}

func TestLimiter_AllowPerClient(t *testing.T) {
	limiter := NewLimiter(1, 2)

	assert.True(t, limiter.Allow("alice"))
	assert.True(t, limiter.Allow("alice"))
	assert.False(t, limiter.Allow("alice"), "burst exhausted")

	// Other clients have their own bucket
	assert.True(t, limiter.Allow("bob"))
	assert.Equal(t, 2, limiter.Len())
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("client"))
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "client"))
	require.NoError(t, limiter.Wait(ctx, "client"))
}

func TestLimiter_WaitDeadline(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	require.True(t, limiter.Allow("client"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "client")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrRateLimited))
}

func TestLimiter_SetClientRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetClientRate("batch", 1000, 10)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow("batch"))
	}
}

func TestLimiter_Forget(t *testing.T) {
	limiter := NewLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(time.Hour)
	limiter.Allow("fresh")

	assert.Equal(t, 1, limiter.Forget(30*time.Minute))
	assert.Equal(t, 1, limiter.Len())
}
