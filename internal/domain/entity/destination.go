package entity

import (
	"fmt"
	"time"
)

// Destination represents an airport the catalog knows how to reach
type Destination struct {
	Code       string         `json:"code"`
	City       string         `json:"city"`
	Country    string         `json:"country"`
	TimeZone   string         `json:"timeZone"`
	FlightTime time.Duration  `json:"flightTime"`
	Location   *time.Location `json:"-"`
}

// Label renders the destination the way it appears on a boarding pass.
func (d Destination) Label() string {
	return fmt.Sprintf("%s, %s", d.City, d.Country)
}

// FlightTimeLabel formats the nominal flight time as "12h 30m".
func (d Destination) FlightTimeLabel() string {
	if d.FlightTime <= 0 {
		return "—"
	}
	h := int(d.FlightTime.Hours())
	m := int(d.FlightTime.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}
