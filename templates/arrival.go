package templates

import (
	"fmt"

	"jetlag-mailcast/internal/domain/entity"
)

const arrivalTemplate = `We have just landed in %s
Arrival (local): %s

"Souls can't move that quickly, and are left behind, and must be awaited, upon arrival, like lost luggage."

- The perfect jet lag

Cooperated with Genelec Japan`

// ArrivalSubject returns the subject of the deferred notification.
func ArrivalSubject(country string) string {
	return fmt.Sprintf("We've arrived. — %s", country)
}

// Arrival renders the deferred notification for a queued job.
func Arrival(from string, job *entity.NotificationJob) *entity.MailMessage {
	arrival := job.ArrivalLocalFull
	if arrival == "" {
		arrival = job.ArrivalLocal
	}
	return &entity.MailMessage{
		From:    from,
		To:      job.Recipient,
		Subject: ArrivalSubject(job.Country),
		Body:    fmt.Sprintf(arrivalTemplate, job.Country, arrival),
	}
}
