// Package queue is the job queue transport. Jobs are held in
// a Redis sorted set keyed by submission time (FIFO claim order) and
// moved into a second sorted set keyed by claim deadline while processing,
// so a crashed worker's jobs become visible again once their visibility
// timeout elapses — unlike an in-process channel, this survives a worker
// process restart.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKey    = "transcribeapi:queue:pending"
	processingKey = "transcribeapi:queue:processing"
	retriesKey    = "transcribeapi:queue:retries"

	// MaxRetries bounds how many times a job may time out and be
	// re-enqueued before the orphan sweep gives up on it.
	MaxRetries = 3
)

// Queue is the Redis-backed job queue.
type Queue struct {
	client            *redis.Client
	visibilityTimeout time.Duration
}

// New constructs a Queue against an already-connected redis client.
func New(client *redis.Client, visibilityTimeout time.Duration) *Queue {
	return &Queue{client: client, visibilityTimeout: visibilityTimeout}
}

// NewClient builds the redis.Client used by the queue, pooled the way the
// rest of this service's external clients are (bounded dial/read/write
// timeouts, modest pool size — this is a single-tenant job queue, not a
// public cache).
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Enqueue adds jobID to the pending set, scored by submission time so
// claims are served oldest-first.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	return q.client.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: jobID,
	}).Err()
}

// Claim pops the oldest pending job and marks it processing with a
// deadline visibilityTimeout from now. Returns ("", false, nil) when the
// pending set is empty.
func (q *Queue) Claim(ctx context.Context) (string, bool, error) {
	results, err := q.client.ZPopMin(ctx, pendingKey, 1).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim job: %w", err)
	}
	if len(results) == 0 {
		return "", false, nil
	}

	jobID, ok := results[0].Member.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected queue member type")
	}

	deadline := time.Now().Add(q.visibilityTimeout)
	if err := q.client.ZAdd(ctx, processingKey, redis.Z{
		Score:  float64(deadline.UnixNano()),
		Member: jobID,
	}).Err(); err != nil {
		return "", false, fmt.Errorf("mark processing: %w", err)
	}

	return jobID, true, nil
}

// Complete removes jobID from the processing set and clears its retry
// counter. Call this once the job reaches a terminal status.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, processingKey, jobID)
	pipe.HDel(ctx, retriesKey, jobID)
	_, err := pipe.Exec(ctx)
	return err
}

// SweepExpired scans the processing set for jobs whose visibility
// deadline has passed. Each one is either re-enqueued (retry budget
// remains) or returned in the exhausted list for the caller to mark
// FAILED with reason "stuck".
func (q *Queue) SweepExpired(ctx context.Context) (reenqueued, exhausted []string, err error) {
	now := float64(time.Now().UnixNano())
	expired, err := q.client.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("sweep expired: %w", err)
	}

	for _, jobID := range expired {
		retries, err := q.client.HIncrBy(ctx, retriesKey, jobID, 1).Result()
		if err != nil {
			continue
		}

		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, processingKey, jobID)
		if retries > MaxRetries {
			pipe.HDel(ctx, retriesKey, jobID)
		} else {
			pipe.ZAdd(ctx, pendingKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: jobID})
		}
		if _, err := pipe.Exec(ctx); err != nil {
			continue
		}

		if retries > MaxRetries {
			exhausted = append(exhausted, jobID)
		} else {
			reenqueued = append(reenqueued, jobID)
		}
	}

	return reenqueued, exhausted, nil
}

// Stats reports queue depth for metrics and the admin surface.
type Stats struct {
	Pending    int64
	Processing int64
}

// Stats returns the current pending/processing set sizes.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pending, err := q.client.ZCard(ctx, pendingKey).Result()
	if err != nil {
		return Stats{}, err
	}
	processing, err := q.client.ZCard(ctx, processingKey).Result()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Pending: pending, Processing: processing}, nil
}
