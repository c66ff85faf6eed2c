package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"
	"jetlag-mailcast/pkg/metrics"
)

// AssignReason explains why the flight source could not supply a flight
type AssignReason string

// Reasons the assigner fell back to a synthetic flight
const (
	ReasonNoSource       AssignReason = "no_source"
	ReasonUnknownOrigin  AssignReason = "unknown_origin"
	ReasonSourceError    AssignReason = "source_error"
	ReasonEmpty          AssignReason = "empty"
	ReasonMalformed      AssignReason = "malformed"
	ReasonNoFutureFlight AssignReason = "no_future_flight"
)

// AssignError is returned by the source path of the assigner
type AssignError struct {
	Reason AssignReason
	Err    error
}

func (e *AssignError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flight source: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("flight source: %s", e.Reason)
}

func (e *AssignError) Unwrap() error { return e.Err }

// LocalTime is a wall-clock time of day
type LocalTime struct {
	Hour   int
	Minute int
}

// CanonicalArrivalTimes are the local arrival times used for synthetic flights:
// mid-morning, early afternoon and evening.
var CanonicalArrivalTimes = []LocalTime{{9, 30}, {13, 15}, {18, 0}}

// FlightAssigner picks the flight for a submission
type FlightAssigner struct {
	source       repository.FlightDataSource
	catalog      *Catalog
	originCode   string
	destinations []string
	logger       logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// FlightAssignerOption customises a FlightAssigner.
type FlightAssignerOption func(*FlightAssigner)

// WithClock overrides the time source.
func WithClock(now func() time.Time) FlightAssignerOption {
	return func(a *FlightAssigner) {
		a.now = now
	}
}

// WithRand overrides the random source used for synthetic flights.
func WithRand(rng *rand.Rand) FlightAssignerOption {
	return func(a *FlightAssigner) {
		a.rng = rng
	}
}

// WithMetrics records fallback assignments.
func WithMetrics(m *metrics.Metrics) FlightAssignerOption {
	return func(a *FlightAssigner) {
		a.metrics = m
	}
}

// NewFlightAssigner creates a flight assigner. source may be nil, in which
// case every flight is synthetic.
func NewFlightAssigner(
	source repository.FlightDataSource,
	catalog *Catalog,
	originCode string,
	destinations []string,
	logger logger.Logger,
	opts ...FlightAssignerOption,
) *FlightAssigner {
	a := &FlightAssigner{
		source:       source,
		catalog:      catalog,
		originCode:   originCode,
		destinations: destinations,
		logger:       logger,
		now:          time.Now,
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Origin returns the departure airport.
func (a *FlightAssigner) Origin() (entity.Destination, bool) {
	return a.catalog.Lookup(a.originCode)
}

// Assign returns a flight whose arrival is strictly in the future. It never
// fails: any problem with the flight source degrades to a synthetic flight.
func (a *FlightAssigner) Assign(ctx context.Context) *entity.Flight {
	now := a.now()

	flight, assignErr := a.assignFromSource(ctx, now)
	if assignErr == nil {
		a.logger.Info("Assigned flight from source",
			"flight", flight.FlightNumber,
			"route", flight.Route,
			"arrival", flight.ArrivalAt)
		return flight
	}

	if assignErr.Reason == ReasonNoSource {
		a.logger.Debug("No flight source configured, synthesizing flight")
	} else {
		a.logger.Warn("Flight source unusable, synthesizing flight", "reason", assignErr.Reason, "error", assignErr)
	}
	if a.metrics != nil {
		a.metrics.FallbackAssignments.WithLabelValues(string(assignErr.Reason)).Inc()
	}
	return a.synthesize(now)
}

func (a *FlightAssigner) assignFromSource(ctx context.Context, now time.Time) (*entity.Flight, *AssignError) {
	if a.source == nil {
		return nil, &AssignError{Reason: ReasonNoSource}
	}
	origin, ok := a.catalog.Lookup(a.originCode)
	if !ok {
		return nil, &AssignError{Reason: ReasonUnknownOrigin, Err: fmt.Errorf("origin %q not in catalog", a.originCode)}
	}

	records, err := a.source.Query(ctx, origin.Code, a.destinations, now.In(origin.Location))
	if err != nil {
		return nil, &AssignError{Reason: ReasonSourceError, Err: err}
	}
	if len(records) == 0 {
		return nil, &AssignError{Reason: ReasonEmpty}
	}

	var best *entity.Flight
	usable := 0
	for _, rec := range records {
		flight, ok := a.toFlight(origin, rec)
		if !ok {
			continue
		}
		usable++
		if !flight.ArrivalAt.After(now) {
			continue
		}
		// Strictly earlier only, so exact ties keep the source's order.
		if best == nil || flight.ArrivalAt.Before(best.ArrivalAt) {
			best = flight
		}
	}

	switch {
	case usable == 0:
		return nil, &AssignError{Reason: ReasonMalformed, Err: errors.New("no record with a known destination and arrival time")}
	case best == nil:
		return nil, &AssignError{Reason: ReasonNoFutureFlight}
	}
	return best, nil
}

func (a *FlightAssigner) toFlight(origin entity.Destination, rec entity.FlightRecord) (*entity.Flight, bool) {
	dest, ok := a.catalog.Lookup(rec.Destination)
	if !ok {
		return nil, false
	}
	arrival := rec.ArrivalAt()
	if arrival.IsZero() {
		return nil, false
	}
	if rec.TimeZone != "" && rec.TimeZone != dest.TimeZone {
		if loc, err := time.LoadLocation(rec.TimeZone); err == nil {
			dest.TimeZone = rec.TimeZone
			dest.Location = loc
		}
	}
	return entity.NewFlight(origin, dest, arrival, rec.FlightNumber, false), true
}

func (a *FlightAssigner) synthesize(now time.Time) *entity.Flight {
	fallback := a.catalog.Fallback()

	a.mu.Lock()
	dest := fallback[a.rng.IntN(len(fallback))]
	at := CanonicalArrivalTimes[a.rng.IntN(len(CanonicalArrivalTimes))]
	a.mu.Unlock()

	year, month, day := now.In(dest.Location).Date()
	arrival := time.Date(year, month, day, at.Hour, at.Minute, 0, 0, dest.Location)
	if !arrival.After(now) {
		arrival = time.Date(year, month, day+1, at.Hour, at.Minute, 0, 0, dest.Location)
	}

	origin, ok := a.catalog.Lookup(a.originCode)
	if !ok {
		origin = entity.Destination{Code: a.originCode, City: a.originCode, TimeZone: "UTC", Location: time.UTC}
	}

	flight := entity.NewFlight(origin, dest, arrival, "", true)
	a.logger.Info("Synthesized flight", "route", flight.Route, "arrival", flight.ArrivalAt)
	return flight
}
