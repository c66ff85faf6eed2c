package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// defaultClaimBatch caps how many jobs one ClaimDue call marks as sending.
const defaultClaimBatch = 100

// MongoNotificationQueueRepository stores one document per job. A claim flips
// status queued -> sending with FindOneAndUpdate, which is atomic per document.
type MongoNotificationQueueRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
	batchSize  int
	logger     logger.Logger
	now        func() time.Time
}

var (
	_ repository.NotificationQueueRepository = (*MongoNotificationQueueRepository)(nil)
	_ repository.StaleClaimReleaser          = (*MongoNotificationQueueRepository)(nil)
)

// NewMongoNotificationQueueRepository creates a MongoDB-backed queue
func NewMongoNotificationQueueRepository(db *mongo.Database, ttl time.Duration, logger logger.Logger) *MongoNotificationQueueRepository {
	collection := db.Collection("arrivalJobs")

	ctx := context.Background()

	// Finding due jobs
	bucketIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "bucket", Value: 1},
			{Key: "status", Value: 1},
		},
	}

	// Documents are removed by the server once expireAt has passed
	expiryIndex := mongo.IndexModel{
		Keys:    bson.M{"expireAt": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	// Finding abandoned claims
	claimIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "claimedAt", Value: 1},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{bucketIndex, expiryIndex, claimIndex}); err != nil {
		logger.Warn("Failed to create arrival job indexes", "error", err)
	}

	return &MongoNotificationQueueRepository{
		collection: collection,
		ttl:        ttl,
		batchSize:  defaultClaimBatch,
		logger:     logger,
		now:        time.Now,
	}
}

// Enqueue upserts the job into its bucket and pushes the bucket's expiry out.
func (r *MongoNotificationQueueRepository) Enqueue(ctx context.Context, bucketKey string, job *entity.NotificationJob) error {
	if bucketKey == "" {
		return errors.New("bucket key cannot be empty")
	}
	expireAt := r.now().Add(r.ttl)
	job.Bucket = bucketKey
	job.ExpireAt = expireAt

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": job.ID}, job, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo enqueue: %w", err)
	}

	_, err = r.collection.UpdateMany(ctx,
		bson.M{"bucket": bucketKey},
		bson.M{"$set": bson.M{"expireAt": expireAt}},
	)
	if err != nil {
		return fmt.Errorf("mongo refresh bucket expiry: %w", err)
	}
	return nil
}

// ClaimDue marks up to batchSize queued jobs in the given buckets as sending
// and returns them.
func (r *MongoNotificationQueueRepository) ClaimDue(ctx context.Context, bucketKeys []string) ([]*entity.NotificationJob, error) {
	if len(bucketKeys) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"bucket": bson.M{"$in": bucketKeys},
		"status": entity.JobQueued,
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "sendAt", Value: 1}})

	var jobs []*entity.NotificationJob
	for len(jobs) < r.batchSize {
		update := bson.M{"$set": bson.M{
			"status":    entity.JobSending,
			"claimedAt": r.now(),
		}}

		var job entity.NotificationJob
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			if len(jobs) == 0 {
				return nil, fmt.Errorf("mongo claim: %w", err)
			}
			// Hand over what was claimed; the rest stays queued for the next cycle.
			r.logger.Error("Claim interrupted", "claimed", len(jobs), "error", err)
			break
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// Complete deletes a delivered job.
func (r *MongoNotificationQueueRepository) Complete(ctx context.Context, job *entity.NotificationJob) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": job.ID})
	if err != nil {
		return fmt.Errorf("mongo delete job: %w", err)
	}
	return nil
}

// ReleaseStale hands jobs claimed before claimedBefore back to the queue,
// filed under bucketKey.
func (r *MongoNotificationQueueRepository) ReleaseStale(ctx context.Context, claimedBefore time.Time, bucketKey string) (int64, error) {
	if bucketKey == "" {
		return 0, errors.New("bucket key cannot be empty")
	}
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":    entity.JobSending,
			"claimedAt": bson.M{"$lt": claimedBefore},
		},
		bson.M{
			"$set": bson.M{
				"status":   entity.JobQueued,
				"bucket":   bucketKey,
				"expireAt": r.now().Add(r.ttl),
			},
			"$unset": bson.M{"claimedAt": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo release stale claims: %w", err)
	}
	return result.ModifiedCount, nil
}

// Health pings the MongoDB deployment.
func (r *MongoNotificationQueueRepository) Health(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}
