package usecase

import (
	"time"

	"jetlag-mailcast/internal/domain/entity"
)

// DefaultOrigin is the airport every flight departs from.
const DefaultOrigin = "HND"

// DefaultDestinations is the static destination table. FlightTime is the
// nominal block time from Tokyo.
var DefaultDestinations = []entity.Destination{
	{Code: "HND", City: "Tokyo", Country: "Japan", TimeZone: "Asia/Tokyo"},
	{Code: "LHR", City: "London", Country: "UK", TimeZone: "Europe/London", FlightTime: 12*time.Hour + 30*time.Minute},
	{Code: "CDG", City: "Paris", Country: "France", TimeZone: "Europe/Paris", FlightTime: 12*time.Hour + 50*time.Minute},
	{Code: "BER", City: "Berlin", Country: "Germany", TimeZone: "Europe/Berlin", FlightTime: 13 * time.Hour},
	{Code: "AMS", City: "Amsterdam", Country: "Netherlands", TimeZone: "Europe/Amsterdam", FlightTime: 12*time.Hour + 20*time.Minute},
	{Code: "JFK", City: "New York", Country: "USA", TimeZone: "America/New_York", FlightTime: 13 * time.Hour},
	{Code: "YYZ", City: "Toronto", Country: "Canada", TimeZone: "America/Toronto", FlightTime: 12*time.Hour + 50*time.Minute},
	{Code: "LAX", City: "Los Angeles", Country: "USA", TimeZone: "America/Los_Angeles", FlightTime: 11 * time.Hour},
	{Code: "DEL", City: "Delhi", Country: "India", TimeZone: "Asia/Kolkata", FlightTime: 9*time.Hour + 40*time.Minute},
	{Code: "KTM", City: "Kathmandu", Country: "Nepal", TimeZone: "Asia/Kathmandu", FlightTime: 8*time.Hour + 45*time.Minute},
	{Code: "ADL", City: "Adelaide", Country: "Australia", TimeZone: "Australia/Adelaide", FlightTime: 10*time.Hour + 20*time.Minute},
	{Code: "HNL", City: "Honolulu", Country: "USA", TimeZone: "Pacific/Honolulu", FlightTime: 7*time.Hour + 30*time.Minute},
}

// DefaultFallbackCodes are the destinations a synthetic flight is drawn from.
var DefaultFallbackCodes = []string{"LHR", "CDG", "BER", "AMS", "JFK", "YYZ", "LAX"}
