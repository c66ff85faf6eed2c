package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var assignerNow = time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(DefaultDestinations, DefaultFallbackCodes)
	require.NoError(t, err)
	return catalog
}

func newTestAssigner(t *testing.T, source *mockFlightSource, now time.Time, seed uint64) *FlightAssigner {
	t.Helper()
	opts := []FlightAssignerOption{
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewPCG(seed, seed+1))),
	}
	if source == nil {
		return NewFlightAssigner(nil, newTestCatalog(t), "HND", DefaultFallbackCodes, logger.NewNop(), opts...)
	}
	return NewFlightAssigner(source, newTestCatalog(t), "HND", DefaultFallbackCodes, logger.NewNop(), opts...)
}

func assertSynthetic(t *testing.T, flight *entity.Flight, now time.Time) {
	t.Helper()
	require.NotNil(t, flight)
	assert.True(t, flight.Synthetic)
	assert.True(t, flight.ArrivalAt.After(now), "arrival %v not after %v", flight.ArrivalAt, now)
	assert.Contains(t, DefaultFallbackCodes, flight.Destination.Code)
	assert.Equal(t, "HND", flight.Origin.Code)

	local := flight.ArrivalAt.In(flight.Destination.Location)
	assert.Contains(t, CanonicalArrivalTimes, LocalTime{Hour: local.Hour(), Minute: local.Minute()})
}

func TestFlightAssigner_NoSourceSynthesizes(t *testing.T) {
	assigner := newTestAssigner(t, nil, assignerNow, 1)

	assertSynthetic(t, assigner.Assign(context.Background()), assignerNow)
}

func TestFlightAssigner_EmptySourceSynthesizes(t *testing.T) {
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, "HND", DefaultFallbackCodes, mock.Anything).Return([]entity.FlightRecord{}, nil)

	assigner := newTestAssigner(t, source, assignerNow, 2)

	assertSynthetic(t, assigner.Assign(context.Background()), assignerNow)
	source.AssertExpectations(t)
}

func TestFlightAssigner_SourceErrorSynthesizes(t *testing.T) {
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, "HND", DefaultFallbackCodes, mock.Anything).Return(nil, errors.New("timeout"))

	assigner := newTestAssigner(t, source, assignerNow, 3)

	assertSynthetic(t, assigner.Assign(context.Background()), assignerNow)
}

func TestFlightAssigner_MalformedRecordsSynthesize(t *testing.T) {
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]entity.FlightRecord{
		{FlightNumber: "XX1", Origin: "HND", Destination: "ZZZ", ScheduledArrival: assignerNow.Add(time.Hour)},
		{FlightNumber: "XX2", Origin: "HND", Destination: "LHR"},
	}, nil)

	assigner := newTestAssigner(t, source, assignerNow, 4)

	flight, assignErr := assigner.assignFromSource(context.Background(), assignerNow)
	assert.Nil(t, flight)
	require.NotNil(t, assignErr)
	assert.Equal(t, ReasonMalformed, assignErr.Reason)

	assertSynthetic(t, assigner.Assign(context.Background()), assignerNow)
}

func TestFlightAssigner_OnlyPastFlights(t *testing.T) {
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]entity.FlightRecord{
		{FlightNumber: "JL41", Destination: "LHR", ScheduledArrival: assignerNow.Add(-time.Hour)},
		{FlightNumber: "JL45", Destination: "CDG", ScheduledArrival: assignerNow},
	}, nil)

	assigner := newTestAssigner(t, source, assignerNow, 5)

	_, assignErr := assigner.assignFromSource(context.Background(), assignerNow)
	require.NotNil(t, assignErr)
	assert.Equal(t, ReasonNoFutureFlight, assignErr.Reason)
}

func TestFlightAssigner_PicksEarliestFutureArrival(t *testing.T) {
	estimated := assignerNow.Add(2 * time.Hour)
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, "HND", DefaultFallbackCodes, mock.Anything).Return([]entity.FlightRecord{
		{FlightNumber: "JL41", Destination: "LHR", ScheduledArrival: assignerNow.Add(-time.Hour)},
		{FlightNumber: "JL45", Destination: "CDG", ScheduledArrival: assignerNow.Add(5 * time.Hour)},
		{FlightNumber: "JL4", Destination: "JFK", ScheduledArrival: assignerNow.Add(3 * time.Hour)},
		{FlightNumber: "XX9", Destination: "ZZZ", ScheduledArrival: assignerNow.Add(time.Hour)},
		{FlightNumber: "KL862", Destination: "AMS", ScheduledArrival: assignerNow.Add(10 * time.Hour), EstimatedArrival: &estimated},
	}, nil)

	assigner := newTestAssigner(t, source, assignerNow, 6)
	flight := assigner.Assign(context.Background())

	require.NotNil(t, flight)
	assert.False(t, flight.Synthetic)
	assert.Equal(t, "KL862", flight.FlightNumber)
	assert.Equal(t, "AMS", flight.Destination.Code)
	assert.True(t, flight.ArrivalAt.Equal(estimated))
	assert.Equal(t, "Tokyo (HND) → Amsterdam (AMS)", flight.Route)
}

func TestFlightAssigner_TieKeepsSourceOrder(t *testing.T) {
	arrival := assignerNow.Add(4 * time.Hour)
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]entity.FlightRecord{
		{FlightNumber: "AF275", Destination: "CDG", ScheduledArrival: arrival},
		{FlightNumber: "LH715", Destination: "BER", ScheduledArrival: arrival},
	}, nil)

	for i := 0; i < 10; i++ {
		assigner := newTestAssigner(t, source, assignerNow, uint64(i))
		assert.Equal(t, "AF275", assigner.Assign(context.Background()).FlightNumber)
	}
}

func TestFlightAssigner_RecordTimeZoneOverridesCatalog(t *testing.T) {
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]entity.FlightRecord{
		{FlightNumber: "JL62", Destination: "LAX", ScheduledArrival: assignerNow.Add(time.Hour), TimeZone: "America/Phoenix"},
	}, nil)

	flight := newTestAssigner(t, source, assignerNow, 7).Assign(context.Background())

	assert.Equal(t, "America/Phoenix", flight.Destination.TimeZone)
	assert.Equal(t, "America/Phoenix", flight.ArrivalAt.Location().String())
}

func TestFlightAssigner_QueriesOriginLocalDate(t *testing.T) {
	// 20:00 UTC on the 15th is already the 16th in Tokyo.
	now := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)
	source := new(mockFlightSource)
	source.On("Query", mock.Anything, "HND", DefaultFallbackCodes, mock.MatchedBy(func(date time.Time) bool {
		return date.Day() == 16 && date.Location().String() == "Asia/Tokyo"
	})).Return([]entity.FlightRecord{}, nil)

	newTestAssigner(t, source, now, 8).Assign(context.Background())

	source.AssertExpectations(t)
}

func TestFlightAssigner_SyntheticArrivalAlwaysInFuture(t *testing.T) {
	seen := map[string]bool{}
	for hour := 0; hour < 24; hour++ {
		now := time.Date(2026, 6, 1, hour, 17, 0, 0, time.UTC)
		for seed := uint64(0); seed < 20; seed++ {
			flight := newTestAssigner(t, nil, now, seed).Assign(context.Background())
			assertSynthetic(t, flight, now)
			assert.LessOrEqual(t, flight.ArrivalAt.Sub(now), 48*time.Hour)
			seen[flight.Destination.Code] = true
		}
	}

	// Every fallback destination should come up across 480 draws.
	for _, code := range DefaultFallbackCodes {
		assert.True(t, seen[code], "fallback destination %s never chosen", code)
	}
}
