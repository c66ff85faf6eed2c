package entity

import (
	"errors"
	"fmt"
	"time"
)

// JobStatus is the delivery state of an arrival notification
type JobStatus string

// Arrival job statuses
const (
	JobQueued  JobStatus = "queued"
	JobSending JobStatus = "sending"
	JobSent    JobStatus = "sent"
)

// ErrInvalidTransition is returned when a job is moved between states the
// state machine does not allow.
var ErrInvalidTransition = errors.New("invalid job status transition")

// NotificationJob is a deferred arrival notification waiting in a queue bucket
type NotificationJob struct {
	ID               string     `json:"id" bson:"_id"`
	Recipient        string     `json:"recipient" bson:"recipient"`
	Route            string     `json:"route" bson:"route"`
	Country          string     `json:"country" bson:"country"`
	ArrivalLocal     string     `json:"arrivalLocal" bson:"arrivalLocal"`
	ArrivalLocalFull string     `json:"arrivalLocalFull" bson:"arrivalLocalFull"`
	SendAt           time.Time  `json:"sendAt" bson:"sendAt"`
	Status           JobStatus  `json:"status" bson:"status"`
	Attempts         int        `json:"attempts" bson:"attempts"`
	LastError        string     `json:"lastError,omitempty" bson:"lastError,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
	Bucket           string     `json:"bucket,omitempty" bson:"bucket"`
	ExpireAt         time.Time  `json:"-" bson:"expireAt"`
	ClaimedAt        *time.Time `json:"claimedAt,omitempty" bson:"claimedAt,omitempty"`
}

// MarkSending moves a queued job into sending.
func (j *NotificationJob) MarkSending(at time.Time) error {
	if err := j.transition(JobQueued, JobSending); err != nil {
		return err
	}
	j.ClaimedAt = &at
	return nil
}

// MarkSent records a successful delivery. Sent is terminal.
func (j *NotificationJob) MarkSent() error {
	return j.transition(JobSending, JobSent)
}

// MarkQueued reverts a job whose send failed so a later cycle can retry it.
func (j *NotificationJob) MarkQueued(cause error) error {
	if err := j.transition(JobSending, JobQueued); err != nil {
		return err
	}
	j.Attempts++
	j.ClaimedAt = nil
	if cause != nil {
		j.LastError = cause.Error()
	}
	return nil
}

func (j *NotificationJob) transition(from, to JobStatus) error {
	if j.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}
