package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisNotificationQueueRepository keeps each minute bucket as a Redis list of
// JSON-encoded jobs. Keys passed to ClaimDue should share a hash tag when
// running against Redis Cluster, since the claim is one MULTI/EXEC.
type RedisNotificationQueueRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

var _ repository.NotificationQueueRepository = (*RedisNotificationQueueRepository)(nil)

// NewRedisNotificationQueueRepository creates a Redis-backed queue whose
// buckets expire ttl after their most recent write.
func NewRedisNotificationQueueRepository(client redis.UniversalClient, ttl time.Duration, logger logger.Logger) *RedisNotificationQueueRepository {
	return &RedisNotificationQueueRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Enqueue appends the job to its bucket and resets the bucket's expiry.
func (r *RedisNotificationQueueRepository) Enqueue(ctx context.Context, bucketKey string, job *entity.NotificationJob) error {
	if bucketKey == "" {
		return errors.New("bucket key cannot be empty")
	}
	job.Bucket = bucketKey

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, bucketKey, data)
		pipe.Expire(ctx, bucketKey, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

// ClaimDue reads and deletes every listed bucket inside a single MULTI/EXEC,
// so concurrent claimers never see the same job.
func (r *RedisNotificationQueueRepository) ClaimDue(ctx context.Context, bucketKeys []string) ([]*entity.NotificationJob, error) {
	if len(bucketKeys) == 0 {
		return nil, nil
	}

	ranges := make([]*redis.StringSliceCmd, len(bucketKeys))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range bucketKeys {
			ranges[i] = pipe.LRange(ctx, key, 0, -1)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis claim: %w", err)
	}

	var jobs []*entity.NotificationJob
	for i, cmd := range ranges {
		for _, raw := range cmd.Val() {
			var job entity.NotificationJob
			if err := json.Unmarshal([]byte(raw), &job); err != nil {
				r.logger.Error("Dropping undecodable queue entry", "bucket", bucketKeys[i], "entry", raw, "error", err)
				continue
			}
			job.Bucket = bucketKeys[i]
			jobs = append(jobs, &job)
		}
	}
	return jobs, nil
}

// Complete is a no-op: the claim already removed the job from Redis.
func (r *RedisNotificationQueueRepository) Complete(ctx context.Context, job *entity.NotificationJob) error {
	return nil
}

// Health checks the health of the Redis connection.
func (r *RedisNotificationQueueRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
