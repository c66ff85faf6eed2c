// internal/domain/entity/flight_record.go
package entity

import (
	"time"
)

// FlightRecord is one candidate flight as reported by an external flight-data source
type FlightRecord struct {
	FlightNumber     string     `json:"flightNumber"`
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	ScheduledArrival time.Time  `json:"scheduledArrival"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
	TimeZone         string     `json:"timezone"`
}

// ArrivalAt prefers the estimated arrival and falls back to the schedule.
func (r FlightRecord) ArrivalAt() time.Time {
	if r.EstimatedArrival != nil && !r.EstimatedArrival.IsZero() {
		return *r.EstimatedArrival
	}
	return r.ScheduledArrival
}
