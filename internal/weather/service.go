package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Service orchestrates fetching from multiple providers and persisting records.
type Service struct {
	store     Store
	providers []Provider
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		providers: providers,
		logger:    logger,
	}
}

// FetchCurrent fetches data from all providers concurrently for the given
// location, aggregates the successful readings, stores the record and
// returns it. When no provider succeeds it returns ErrLocationNotFound if
// any provider reported the city as unknown, ErrNoReadings otherwise.
func (s *Service) FetchCurrent(ctx context.Context, loc Location) (Record, error) {
	loc.City = strings.TrimSpace(loc.City)
	loc.Country = strings.TrimSpace(loc.Country)
	if loc.City == "" {
		return Record{}, fmt.Errorf("city is required")
	}

	if len(s.providers) == 0 {
		s.logger.ErrorContext(ctx, "no providers available to fetch weather data", "location", loc.Key())
		return Record{}, fmt.Errorf("no weather providers configured")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings = make([]*ProviderReading, len(s.providers))
		notFound bool
	)

	s.logger.DebugContext(ctx, "fetching current weather", "location", loc.Key(), "providers", len(s.providers))

	for i, p := range s.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.logger.WarnContext(ctx, "provider fetch failed", "provider", p.Name(), "location", loc.Key(), "error", err)
				if errors.Is(err, ErrLocationNotFound) {
					mu.Lock()
					notFound = true
					mu.Unlock()
				}
				return
			}

			// slot per provider keeps aggregation order stable
			readings[i] = &r
		}()
	}

	wg.Wait()

	ok := make([]ProviderReading, 0, len(readings))
	for _, r := range readings {
		if r != nil {
			ok = append(ok, *r)
		}
	}

	if len(ok) == 0 {
		if notFound {
			return Record{}, fmt.Errorf("%w: %s", ErrLocationNotFound, loc.Query())
		}
		return Record{}, ErrNoReadings
	}

	rec := AggregateReadings(loc, ok)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.store.SaveRecord(loc, rec)
	return rec, nil
}

// FetchAndStore refreshes the stored record for loc. Failures are logged and
// the last good record is kept.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	if _, err := s.FetchCurrent(ctx, loc); err != nil {
		s.logger.WarnContext(ctx, "no successful provider readings; keeping last good record", "location", loc.Key(), "error", err)
		return err
	}
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (Record, error) {
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]Record, error) {
	return s.store.GetRange(loc, from, to)
}
