package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"
)

// Catalog errors
var (
	ErrDuplicateDestination = errors.New("duplicate destination code")
	ErrUnknownTimeZone      = errors.New("unknown time zone")
	ErrEmptyFallback        = errors.New("no usable fallback destinations")
)

// Catalog is the immutable destination table built at process start
type Catalog struct {
	byCode   map[string]entity.Destination
	fallback []entity.Destination
}

// NewCatalog validates the table, resolves every time zone and selects the
// fallback destinations. Fallback codes missing from the table are skipped.
func NewCatalog(destinations []entity.Destination, fallbackCodes []string) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]entity.Destination, len(destinations))}

	for _, d := range destinations {
		code := strings.ToUpper(strings.TrimSpace(d.Code))
		if _, exists := c.byCode[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDestination, code)
		}
		loc, err := time.LoadLocation(d.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%s): %v", ErrUnknownTimeZone, d.TimeZone, code, err)
		}
		d.Code = code
		d.Location = loc
		c.byCode[code] = d
	}

	for _, code := range fallbackCodes {
		if d, ok := c.byCode[strings.ToUpper(code)]; ok {
			c.fallback = append(c.fallback, d)
		}
	}
	if len(c.fallback) == 0 {
		return nil, ErrEmptyFallback
	}

	return c, nil
}

// LoadCatalog builds the catalog from the repository, falling back to the
// static table when the repository is nil, fails, or holds nothing usable.
func LoadCatalog(ctx context.Context, repo repository.DestinationRepository, fallbackCodes []string, log logger.Logger) (*Catalog, error) {
	if repo != nil {
		rows, err := repo.List(ctx)
		switch {
		case err != nil:
			log.Warn("Failed to load destinations, using static table", "error", err)
		case len(rows) == 0:
			log.Warn("Destination table is empty, using static table")
		default:
			destinations := make([]entity.Destination, 0, len(rows))
			for _, row := range rows {
				destinations = append(destinations, *row)
			}
			catalog, err := NewCatalog(destinations, fallbackCodes)
			if err == nil {
				log.Info("Loaded destination catalog from database", "count", len(destinations))
				return catalog, nil
			}
			log.Warn("Stored destinations are invalid, using static table", "error", err)
		}
	}
	return NewCatalog(DefaultDestinations, fallbackCodes)
}

// Lookup returns the destination for an airport code.
func (c *Catalog) Lookup(code string) (entity.Destination, bool) {
	d, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}

// Fallback returns the curated destinations used for synthetic flights.
func (c *Catalog) Fallback() []entity.Destination {
	out := make([]entity.Destination, len(c.fallback))
	copy(out, c.fallback)
	return out
}

// Len returns the number of destinations in the catalog.
func (c *Catalog) Len() int {
	return len(c.byCode)
}
