package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"

	"github.com/sony/gobreaker/v2"
)

// ErrFlightAPIUnavailable is returned while the circuit breaker is open.
var ErrFlightAPIUnavailable = errors.New("flight api unavailable")

const maxFlightResponseBytes = 1 << 20

// flightsResponse is the envelope returned by the flight-data API
type flightsResponse struct {
	Data []entity.FlightRecord `json:"data"`
}

// FlightAPIRepository queries an HTTP flight-data API behind a circuit breaker
type FlightAPIRepository struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]entity.FlightRecord]
	logger  logger.Logger
}

var _ repository.FlightDataSource = (*FlightAPIRepository)(nil)

// FlightAPIOption customises a FlightAPIRepository.
type FlightAPIOption func(*gobreaker.Settings)

// WithTripAfter opens the breaker after n consecutive failures.
func WithTripAfter(n uint32) FlightAPIOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(d time.Duration) FlightAPIOption {
	return func(s *gobreaker.Settings) {
		s.Timeout = d
	}
}

// NewFlightAPIRepository creates a client for the flight-data API at baseURL.
func NewFlightAPIRepository(baseURL, apiKey string, timeout time.Duration, logger logger.Logger, opts ...FlightAPIOption) *FlightAPIRepository {
	settings := gobreaker.Settings{
		Name:        "flight-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &FlightAPIRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]entity.FlightRecord](settings),
		logger:  logger,
	}
}

// Query returns the flights from origin to any of destinations arriving on
// the origin-local date of date.
func (r *FlightAPIRepository) Query(ctx context.Context, origin string, destinations []string, date time.Time) ([]entity.FlightRecord, error) {
	records, err := r.breaker.Execute(func() ([]entity.FlightRecord, error) {
		return r.fetch(ctx, origin, destinations, date)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrFlightAPIUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *FlightAPIRepository) fetch(ctx context.Context, origin string, destinations []string, date time.Time) ([]entity.FlightRecord, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destinations", strings.Join(destinations, ","))
	params.Set("date", date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/flights?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build flight request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flight request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("flight api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload flightsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFlightResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode flight response: %w", err)
	}

	r.logger.Debug("Flight API responded", "origin", origin, "date", params.Get("date"), "count", len(payload.Data))
	return payload.Data, nil
}
