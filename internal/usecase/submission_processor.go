package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"
	"jetlag-mailcast/pkg/metrics"
	"jetlag-mailcast/templates"

	"github.com/google/uuid"
)

// ErrBoardingPassNotSent is returned when the immediate notification fails.
// It is the only failure a submitter ever sees.
var ErrBoardingPassNotSent = errors.New("boarding pass not sent")

// SubmissionResult describes what happened to one submission
type SubmissionResult struct {
	Flight         *entity.Flight
	Job            *entity.NotificationJob
	ReminderQueued bool
}

// Response converts the result into the outbound JSON shape.
func (r *SubmissionResult) Response() entity.SubmitResponse {
	return entity.SubmitResponse{
		OK:                 true,
		Route:              r.Flight.Route,
		DestinationCountry: r.Flight.Destination.Country,
		ArrivalLocal:       r.Flight.ArrivalLocalFull(),
		SendAtUTC:          r.Job.SendAt.UTC().Format(time.RFC3339),
		ReminderQueued:     r.ReminderQueued,
	}
}

// SubmissionProcessor assigns a flight, sends the boarding pass and queues
// the arrival notification
type SubmissionProcessor struct {
	assigner  *FlightAssigner
	queue     repository.NotificationQueueRepository
	mailer    repository.MailSender
	mailFrom  string
	keyPrefix string
	logger    logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSubmissionProcessor creates a new submission processor
func NewSubmissionProcessor(
	assigner *FlightAssigner,
	queue repository.NotificationQueueRepository,
	mailer repository.MailSender,
	mailFrom string,
	keyPrefix string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *SubmissionProcessor {
	return &SubmissionProcessor{
		assigner:  assigner,
		queue:     queue,
		mailer:    mailer,
		mailFrom:  mailFrom,
		keyPrefix: keyPrefix,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Submit runs the whole submission flow for one recipient. The recipient is
// expected to be validated already.
func (p *SubmissionProcessor) Submit(ctx context.Context, recipient string) (*SubmissionResult, error) {
	log := p.logger.With("recipient", recipient)

	flight := p.assigner.Assign(ctx)
	now := p.now()
	sendAt := NextOccurrence(flight.ArrivalAt, flight.Destination.Location, flight.Origin.Location, now)

	if err := p.mailer.Send(ctx, templates.BoardingPass(p.mailFrom, recipient, flight)); err != nil {
		log.Error("Failed to send boarding pass", "route", flight.Route, "error", err)
		if p.metrics != nil {
			p.metrics.SendFailures.WithLabelValues("boarding", entity.FailureKind(err)).Inc()
		}
		return nil, fmt.Errorf("%w: %w", ErrBoardingPassNotSent, err)
	}
	if p.metrics != nil {
		p.metrics.BoardingPassesSent.Inc()
		p.metrics.Submissions.Inc()
	}

	bucket := BucketKey(p.keyPrefix, sendAt)
	job := &entity.NotificationJob{
		ID:               uuid.NewString(),
		Recipient:        recipient,
		Route:            flight.Route,
		Country:          flight.Destination.Country,
		ArrivalLocal:     flight.ArrivalLocal(),
		ArrivalLocalFull: flight.ArrivalLocalFull(),
		SendAt:           sendAt,
		Status:           entity.JobQueued,
		CreatedAt:        now.UTC(),
		Bucket:           bucket,
	}

	result := &SubmissionResult{Flight: flight, Job: job}

	// The boarding pass is already out, so only a store failure may lose the
	// reminder. A client hang-up or request timeout must not.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	if err := p.queue.Enqueue(enqueueCtx, bucket, job); err != nil {
		log.Error("Failed to queue arrival notification",
			"jobID", job.ID,
			"bucket", bucket,
			"sendAt", sendAt,
			"error", err)
		if p.metrics != nil {
			p.metrics.EnqueueFailures.Inc()
		}
		return result, nil
	}

	result.ReminderQueued = true
	log.Info("Submission processed",
		"jobID", job.ID,
		"route", flight.Route,
		"synthetic", flight.Synthetic,
		"arrivalLocal", job.ArrivalLocalFull,
		"sendAt", sendAt,
		"bucket", bucket)

	return result, nil
}
