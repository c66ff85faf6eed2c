package repository

import (
	"context"
	"time"

	"jetlag-mailcast/internal/domain/entity"
)

// FlightDataSource looks up real flights between an origin and a set of destinations
type FlightDataSource interface {
	Query(ctx context.Context, origin string, destinations []string, date time.Time) ([]entity.FlightRecord, error)
}
