package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jetlag-mailcast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightAPI_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/flights", r.URL.Path)
		assert.Equal(t, "HND", r.URL.Query().Get("origin"))
		assert.Equal(t, "LHR,CDG", r.URL.Query().Get("destinations"))
		assert.Equal(t, "2026-01-16", r.URL.Query().Get("date"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"flightNumber":"JL41","origin":"HND","destination":"LHR","scheduledArrival":"2026-01-16T15:30:00Z","timezone":"Europe/London"},
			{"flightNumber":"AF275","origin":"HND","destination":"CDG","scheduledArrival":"2026-01-16T16:00:00Z","estimatedArrival":"2026-01-16T16:20:00Z"}
		]}`))
	}))
	defer server.Close()

	repo := NewFlightAPIRepository(server.URL+"/", "secret", time.Second, logger.NewNop())
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	records, err := repo.Query(context.Background(), "HND", []string{"LHR", "CDG"}, time.Date(2026, 1, 16, 8, 0, 0, 0, tokyo))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "JL41", records[0].FlightNumber)
	assert.Equal(t, "Europe/London", records[0].TimeZone)
	assert.Nil(t, records[0].EstimatedArrival)
	require.NotNil(t, records[1].EstimatedArrival)
	assert.Equal(t, time.Date(2026, 1, 16, 16, 20, 0, 0, time.UTC), records[1].ArrivalAt().UTC())
}

func TestFlightAPI_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	repo := NewFlightAPIRepository(server.URL, "", time.Second, logger.NewNop())

	_, err := repo.Query(context.Background(), "HND", []string{"LHR"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFlightAPI_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	repo := NewFlightAPIRepository(server.URL, "", time.Second, logger.NewNop())

	_, err := repo.Query(context.Background(), "HND", []string{"LHR"}, time.Now())
	assert.ErrorContains(t, err, "decode flight response")
}

func TestFlightAPI_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := NewFlightAPIRepository(server.URL, "", time.Second, logger.NewNop(),
		WithTripAfter(2), WithOpenTimeout(time.Minute))

	for i := 0; i < 2; i++ {
		_, err := repo.Query(context.Background(), "HND", []string{"LHR"}, time.Now())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrFlightAPIUnavailable)
	}

	_, err := repo.Query(context.Background(), "HND", []string{"LHR"}, time.Now())
	assert.ErrorIs(t, err, ErrFlightAPIUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the server")
}

func TestFlightAPI_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	repo := NewFlightAPIRepository(server.URL, "", 50*time.Millisecond, logger.NewNop())

	start := time.Now()
	_, err := repo.Query(context.Background(), "HND", []string{"LHR"}, time.Now())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
