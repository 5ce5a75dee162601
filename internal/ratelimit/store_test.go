package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := s.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := s.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC), res.ResetAt)

	// first request falls out of the window
	now = time.Date(2024, 1, 1, 12, 1, 1, 0, time.UTC)
	res, err = s.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = s.Allow(ctx, "other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys are independent")
}

func TestInMemoryStore_ForgetsIdleCallers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }

	for _, key := range []string{"bsn:1", "bsn:2", "ip:10.0.0.1"} {
		_, err := s.Allow(ctx, key, 5, time.Minute)
		require.NoError(t, err)
	}
	assert.Len(t, s.windows, 3)

	now = now.Add(2 * time.Minute)
	_, err := s.Allow(ctx, "bsn:3", 5, time.Minute)
	require.NoError(t, err)

	assert.Len(t, s.windows, 1, "only the caller seen in the current window is tracked")
	assert.Contains(t, s.windows, "bsn:3")
}
