package entity

import (
	"fmt"
	"time"
)

// Display layouts for arrival times
const (
	ArrivalShortLayout = "15:04"
	ArrivalFullLayout  = "Mon, 02 Jan 2006 15:04 MST"
)

// Flight is the flight assigned to a single submission
type Flight struct {
	FlightNumber string
	Origin       Destination
	Destination  Destination
	// ArrivalAt is carried in the destination's location so it renders as local time.
	ArrivalAt time.Time
	Route     string
	Synthetic bool
}

// NewFlight builds a flight and derives its route string.
func NewFlight(origin, destination Destination, arrivalAt time.Time, flightNumber string, synthetic bool) *Flight {
	if destination.Location != nil {
		arrivalAt = arrivalAt.In(destination.Location)
	}
	return &Flight{
		FlightNumber: flightNumber,
		Origin:       origin,
		Destination:  destination,
		ArrivalAt:    arrivalAt,
		Route:        fmt.Sprintf("%s (%s) → %s (%s)", origin.City, origin.Code, destination.City, destination.Code),
		Synthetic:    synthetic,
	}
}

// ArrivalLocal returns the short local arrival clock time.
func (f *Flight) ArrivalLocal() string {
	return f.ArrivalAt.Format(ArrivalShortLayout)
}

// ArrivalLocalFull returns the full local arrival time including the zone name.
func (f *Flight) ArrivalLocalFull() string {
	return fmt.Sprintf("%s (%s)", f.ArrivalAt.Format(ArrivalFullLayout), f.Destination.TimeZone)
}
