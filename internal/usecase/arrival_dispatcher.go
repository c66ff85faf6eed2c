package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"
	"jetlag-mailcast/pkg/metrics"
	"jetlag-mailcast/pkg/retry"
	"jetlag-mailcast/templates"

	"golang.org/x/sync/errgroup"
)

// requeueTimeout bounds a queue write that must outlive its caller's context:
// the enqueue after a boarding pass and the requeue of a failed job.
const requeueTimeout = 10 * time.Second

// DispatchResult summarises one claim cycle
type DispatchResult struct {
	Claimed  int
	Sent     int
	Requeued int
	Lost     int
}

// Response converts the result into the outbound JSON shape.
func (r DispatchResult) Response() entity.DispatchResponse {
	return entity.DispatchResponse{OK: true, Claimed: r.Claimed, Sent: r.Sent, Requeued: r.Requeued}
}

// ArrivalDispatcherConfig holds the dependencies of an ArrivalDispatcher
type ArrivalDispatcherConfig struct {
	Queue       repository.NotificationQueueRepository
	Mailer      repository.MailSender
	MailFrom    string
	KeyPrefix   string
	Lookback    time.Duration
	Concurrency int
	SendTimeout time.Duration
	StaleAfter  time.Duration
	Backoff     retry.Backoff
	Logger      logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// ArrivalDispatcher claims due arrival jobs and sends the second notification
type ArrivalDispatcher struct {
	queue       repository.NotificationQueueRepository
	mailer      repository.MailSender
	mailFrom    string
	keyPrefix   string
	lookback    time.Duration
	concurrency int
	sendTimeout time.Duration
	staleAfter  time.Duration
	backoff     retry.Backoff
	logger      logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewArrivalDispatcher creates a dispatcher, filling in defaults for zero values.
func NewArrivalDispatcher(cfg ArrivalDispatcherConfig) *ArrivalDispatcher {
	d := &ArrivalDispatcher{
		queue:       cfg.Queue,
		mailer:      cfg.Mailer,
		mailFrom:    cfg.MailFrom,
		keyPrefix:   cfg.KeyPrefix,
		lookback:    cfg.Lookback,
		concurrency: cfg.Concurrency,
		sendTimeout: cfg.SendTimeout,
		staleAfter:  cfg.StaleAfter,
		backoff:     cfg.Backoff,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
	}
	if d.concurrency <= 0 {
		d.concurrency = 8
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = 30 * time.Second
	}
	if d.backoff == nil {
		d.backoff = retry.DefaultBackoff()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Start runs a claim cycle on every tick until ctx is cancelled.
func (d *ArrivalDispatcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Arrival dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				d.logger.Error("Arrival dispatch cycle failed", "error", err)
			}
		}
	}
}

// RunOnce claims every due bucket and dispatches the claimed jobs. A claim
// failure skips the cycle; individual send failures are re-queued and never
// returned as errors.
func (d *ArrivalDispatcher) RunOnce(ctx context.Context) (DispatchResult, error) {
	started := time.Now()
	if d.metrics != nil {
		defer func() { d.metrics.ClaimCycleTime.Observe(time.Since(started).Seconds()) }()
	}

	now := d.now()
	d.releaseStale(ctx, now)

	keys := DueBucketKeys(d.keyPrefix, now, d.lookback)
	jobs, err := d.queue.ClaimDue(ctx, keys)
	if err != nil {
		if d.metrics != nil {
			d.metrics.ErrorsCount.WithLabelValues("claim").Inc()
		}
		return DispatchResult{}, fmt.Errorf("claim due jobs: %w", err)
	}
	if len(jobs) == 0 {
		d.logger.Debug("No arrival jobs due", "from", keys[0], "to", keys[len(keys)-1])
		return DispatchResult{}, nil
	}

	d.logger.Info("Claimed arrival jobs", "count", len(jobs))
	if d.metrics != nil {
		d.metrics.JobsClaimed.Add(float64(len(jobs)))
	}

	var sent, requeued, lost atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			switch d.dispatch(ctx, job) {
			case outcomeSent:
				sent.Add(1)
			case outcomeRequeued:
				requeued.Add(1)
			case outcomeLost:
				lost.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := DispatchResult{
		Claimed:  len(jobs),
		Sent:     int(sent.Load()),
		Requeued: int(requeued.Load()),
		Lost:     int(lost.Load()),
	}
	d.logger.Info("Arrival dispatch cycle completed",
		"claimed", result.Claimed,
		"sent", result.Sent,
		"requeued", result.Requeued,
		"lost", result.Lost)

	return result, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRequeued
	outcomeLost
	outcomeSkipped
)

func (d *ArrivalDispatcher) dispatch(ctx context.Context, job *entity.NotificationJob) outcome {
	log := d.logger.With("jobID", job.ID, "recipient", job.Recipient)

	if job.Status == entity.JobQueued {
		if err := job.MarkSending(d.now()); err != nil {
			log.Error("Claimed job in unexpected state", "status", job.Status, "error", err)
			return outcomeLost
		}
	}
	if job.Status != entity.JobSending {
		// A sent job must never be delivered twice.
		log.Warn("Skipping claimed job that is not sendable", "status", job.Status)
		return outcomeSkipped
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	sendErr := d.mailer.Send(sendCtx, templates.Arrival(d.mailFrom, job))
	cancel()

	if sendErr == nil {
		_ = job.MarkSent()
		if d.metrics != nil {
			d.metrics.ArrivalsSent.Inc()
		}
		if err := d.queue.Complete(context.WithoutCancel(ctx), job); err != nil {
			log.Error("Failed to remove sent job", "error", err)
		}
		log.Info("Arrival notification sent", "country", job.Country, "attempts", job.Attempts+1)
		return outcomeSent
	}

	if d.metrics != nil {
		d.metrics.SendFailures.WithLabelValues("arrival", entity.FailureKind(sendErr)).Inc()
	}
	_ = job.MarkQueued(sendErr)

	retryAt := d.now().Add(d.backoff.Next(job.Attempts))
	job.Bucket = BucketKey(d.keyPrefix, retryAt)

	logArgs := []interface{}{"attempts", job.Attempts, "retryBucket", job.Bucket, "error", sendErr}
	if entity.IsPermanent(sendErr) {
		log.Error("Arrival notification rejected, will retry", logArgs...)
	} else {
		log.Warn("Arrival notification failed, will retry", logArgs...)
	}

	requeueCtx, cancelRequeue := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancelRequeue()
	if err := d.queue.Enqueue(requeueCtx, job.Bucket, job); err != nil {
		log.Error("Failed to re-queue arrival job, job lost",
			"job", job,
			"error", err)
		if d.metrics != nil {
			d.metrics.ErrorsCount.WithLabelValues("requeue").Inc()
		}
		return outcomeLost
	}
	if d.metrics != nil {
		d.metrics.JobsRequeued.Inc()
	}
	return outcomeRequeued
}

func (d *ArrivalDispatcher) releaseStale(ctx context.Context, now time.Time) {
	releaser, ok := d.queue.(repository.StaleClaimReleaser)
	if !ok || d.staleAfter <= 0 {
		return
	}
	released, err := releaser.ReleaseStale(ctx, now.Add(-d.staleAfter), BucketKey(d.keyPrefix, now))
	if err != nil {
		d.logger.Error("Failed to release stale claims", "error", err)
		return
	}
	if released > 0 {
		d.logger.Warn("Released stale arrival claims", "count", released)
	}
}
