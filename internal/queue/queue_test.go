package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, visibilityTimeout time.Duration) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, visibilityTimeout)
}

func TestEnqueueClaimRoundTrip(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))

	jobID, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-1", jobID)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
}

func TestClaimOnEmptyQueueReturnsFalse(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	_, ok, err := q.Claim(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimOrderIsOldestFirst(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-a"))
	time.Sleep(time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, "job-b"))

	first, _, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-a", first)
}

func TestCompleteRemovesFromProcessing(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	_, _, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, "job-1"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Processing)
}

func TestSweepExpiredReenqueuesWithinRetryBudget(t *testing.T) {
	q := newTestQueue(t, -time.Second) // already expired on claim
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	_, _, err := q.Claim(ctx)
	require.NoError(t, err)

	reenqueued, exhausted, err := q.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, reenqueued)
	assert.Empty(t, exhausted)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestSweepExpiredExhaustsAfterMaxRetries(t *testing.T) {
	q := newTestQueue(t, -time.Second)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))

	for i := 0; i <= MaxRetries; i++ {
		_, _, err := q.Claim(ctx)
		require.NoError(t, err)
		_, _, err = q.SweepExpired(ctx)
		require.NoError(t, err)
	}

	_, exhausted, err := q.SweepExpired(ctx)
	require.NoError(t, err)
	_ = exhausted

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, int64(0), stats.Processing)
}
