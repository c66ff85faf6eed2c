package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"jetlag-mailcast/internal/domain/entity"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store unreachable")

// memoryQueue is an in-process queue whose claim pops buckets under one lock.
type memoryQueue struct {
	mu          sync.Mutex
	buckets     map[string][]entity.NotificationJob
	completed   []string
	failEnqueue bool
	failClaim   bool
	// honorContext makes Enqueue fail on a done context like a network store.
	honorContext bool
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{buckets: make(map[string][]entity.NotificationJob)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, bucketKey string, job *entity.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failEnqueue {
		return errStoreDown
	}
	if q.honorContext {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	job.Bucket = bucketKey
	q.buckets[bucketKey] = append(q.buckets[bucketKey], *job)
	return nil
}

func (q *memoryQueue) ClaimDue(ctx context.Context, bucketKeys []string) ([]*entity.NotificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failClaim {
		return nil, errStoreDown
	}
	var jobs []*entity.NotificationJob
	for _, key := range bucketKeys {
		for _, job := range q.buckets[key] {
			job := job
			jobs = append(jobs, &job)
		}
		delete(q.buckets, key)
	}
	return jobs, nil
}

func (q *memoryQueue) Complete(ctx context.Context, job *entity.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, job.ID)
	return nil
}

func (q *memoryQueue) Health(ctx context.Context) error { return nil }

func (q *memoryQueue) pending(bucketKey string) []entity.NotificationJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]entity.NotificationJob(nil), q.buckets[bucketKey]...)
}

func (q *memoryQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, jobs := range q.buckets {
		n += len(jobs)
	}
	return n
}

// mockMailSender is a testify mock of repository.MailSender.
type mockMailSender struct {
	mock.Mock
}

func (m *mockMailSender) Send(ctx context.Context, msg *entity.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// mockFlightSource is a testify mock of repository.FlightDataSource.
type mockFlightSource struct {
	mock.Mock
}

func (m *mockFlightSource) Query(ctx context.Context, origin string, destinations []string, date time.Time) ([]entity.FlightRecord, error) {
	args := m.Called(ctx, origin, destinations, date)
	records, _ := args.Get(0).([]entity.FlightRecord)
	return records, args.Error(1)
}

// recordingMailer delegates to fn and records every delivered message.
type recordingMailer struct {
	mu   sync.Mutex
	fn   func(ctx context.Context, msg *entity.MailMessage) error
	sent []*entity.MailMessage
}

func (m *recordingMailer) Send(ctx context.Context, msg *entity.MailMessage) error {
	if m.fn != nil {
		if err := m.fn(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

// fixedClock returns a clock frozen at t that tests can move.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// releasingQueue holds jobs claimed by a dispatcher that died and hands them
// back on ReleaseStale.
type releasingQueue struct {
	*memoryQueue
	abandoned     []entity.NotificationJob
	claimedAt     time.Time
	releaseBucket string
}

func (q *releasingQueue) ReleaseStale(ctx context.Context, claimedBefore time.Time, bucketKey string) (int64, error) {
	if !q.claimedAt.Before(claimedBefore) {
		return 0, nil
	}
	q.releaseBucket = bucketKey
	var n int64
	for _, job := range q.abandoned {
		job := job
		job.Status = entity.JobQueued
		if err := q.Enqueue(ctx, bucketKey, &job); err != nil {
			return n, err
		}
		n++
	}
	q.abandoned = nil
	return n, nil
}
