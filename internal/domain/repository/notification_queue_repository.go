package repository

import (
	"context"
	"time"

	"jetlag-mailcast/internal/domain/entity"
)

// NotificationQueueRepository stores deferred arrival jobs in minute buckets.
// ClaimDue must be atomic: a job is handed to at most one caller.
type NotificationQueueRepository interface {
	Enqueue(ctx context.Context, bucketKey string, job *entity.NotificationJob) error
	ClaimDue(ctx context.Context, bucketKeys []string) ([]*entity.NotificationJob, error)
	Complete(ctx context.Context, job *entity.NotificationJob) error
	Health(ctx context.Context) error
}

// StaleClaimReleaser is implemented by stores that mark jobs as claimed in
// place rather than removing them, so claims abandoned by a crashed
// dispatcher can be handed back. Released jobs move to bucketKey so the next
// claim sees them however old their original bucket is.
type StaleClaimReleaser interface {
	ReleaseStale(ctx context.Context, claimedBefore time.Time, bucketKey string) (int64, error)
}
