package templates

import (
	"fmt"

	"jetlag-mailcast/internal/domain/entity"
)

// BoardingPassSubject is the subject of the first notification
const BoardingPassSubject = "Boarding Pass — The Perfect Jet Lag"

const boardingPassTemplate = `Passenger
%s

From
%s

To
%s

Boarding time
%s

Arrival (local)
%s

Cooperated with Genelec Japan`

// BoardingPass renders the immediate notification for a newly assigned flight.
func BoardingPass(from, recipient string, flight *entity.Flight) *entity.MailMessage {
	return &entity.MailMessage{
		From:    from,
		To:      recipient,
		Subject: BoardingPassSubject,
		Body: fmt.Sprintf(boardingPassTemplate,
			recipient,
			flight.Origin.City,
			flight.Destination.Label(),
			flight.Destination.FlightTimeLabel(),
			flight.ArrivalLocalFull(),
		),
	}
}
