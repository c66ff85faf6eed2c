package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestMongoQueue connects to MONGODB_TEST_URI and uses a throwaway database.
func newTestMongoQueue(t *testing.T) *MongoNotificationQueueRepository {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("jetlag_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return NewMongoNotificationQueueRepository(db, testTTL, logger.NewNop())
}

func TestMongoQueue_EnqueueAndClaim(t *testing.T) {
	repo := newTestMongoQueue(t)
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob("a")))
	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-01", newQueuedJob("future")))

	jobs, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Equal(t, entity.JobSending, jobs[0].Status)
	assert.NotNil(t, jobs[0].ClaimedAt)

	again, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repo.Complete(ctx, jobs[0]))
	count, err := repo.collection.CountDocuments(ctx, bson.M{"_id": "a"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMongoQueue_EnqueueRefreshesBucketExpiry(t *testing.T) {
	repo := newTestMongoQueue(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob("a")))
	now = now.Add(time.Hour)
	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob("b")))

	var doc entity.NotificationJob
	require.NoError(t, repo.collection.FindOne(ctx, bson.M{"_id": "a"}).Decode(&doc))
	assert.True(t, doc.ExpireAt.Equal(now.Add(testTTL)))
}

func TestMongoQueue_ConcurrentClaimsAreExclusive(t *testing.T) {
	repo := newTestMongoQueue(t)
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob(fmt.Sprintf("job-%d", i))))
	}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, job := range jobs {
				seen[job.ID]++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
	}
}

func TestMongoQueue_ReleaseStale(t *testing.T) {
	repo := newTestMongoQueue(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob("a")))
	jobs, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	released, err := repo.ReleaseStale(ctx, now.Add(-time.Minute), "q:2026-01-15-09-00")
	require.NoError(t, err)
	assert.Zero(t, released)

	released, err = repo.ReleaseStale(ctx, now.Add(time.Minute), "q:2026-01-15-09-00")
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	reclaimed, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, "a", reclaimed[0].ID)
}

func TestMongoQueue_ReleasedJobMovesToCurrentBucket(t *testing.T) {
	repo := newTestMongoQueue(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Enqueue(ctx, "q:2026-01-15-09-00", newQueuedJob("a")))
	jobs, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// The claimer crashed and the release happens long after the original
	// bucket left the lookback window.
	now = now.Add(2 * time.Hour)
	released, err := repo.ReleaseStale(ctx, now.Add(-10*time.Minute), "q:2026-01-15-11-00")
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	stale, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-09-00"})
	require.NoError(t, err)
	assert.Empty(t, stale)

	reclaimed, err := repo.ClaimDue(ctx, []string{"q:2026-01-15-10-00", "q:2026-01-15-11-00"})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, "a", reclaimed[0].ID)
	assert.Equal(t, "q:2026-01-15-11-00", reclaimed[0].Bucket)
	assert.True(t, reclaimed[0].ExpireAt.After(now))
}

func TestMongoQueue_ReleaseStaleRequiresBucket(t *testing.T) {
	repo := newTestMongoQueue(t)

	_, err := repo.ReleaseStale(context.Background(), time.Now(), "")
	assert.Error(t, err)
}
