package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/cinesky/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// recordHistory holds the time-ordered records of one location.
type recordHistory struct {
	records []weather.Record
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key
	data map[string]*recordHistory

	maxHistory int           // max records per location, <= 0 is unlimited
	maxAge     time.Duration // <= 0 keeps records forever

	now func() time.Time
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*recordHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRecord appends a record for a location and enforces retention. The
// newest record always survives, so the last good reading stays readable.
func (s *MemoryStore) SaveRecord(loc weather.Location, rec weather.Record) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &recordHistory{}
		s.data[key] = history
	}

	history.records = append(history.records, rec)

	if s.maxHistory > 0 && len(history.records) > s.maxHistory {
		over := len(history.records) - s.maxHistory
		history.records = history.records[over:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.records)-1; i++ {
			if !history.records[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.records = history.records[i:]
	}
}

// GetLatest returns the most recent record for a location.
func (s *MemoryStore) GetLatest(loc weather.Location) (weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[loc.Key()]
	if !ok || len(history.records) == 0 {
		return weather.Record{}, ErrNotFound
	}
	return history.records[len(history.records)-1], nil
}

// GetRange returns all records for a location between from and to (inclusive).
func (s *MemoryStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[loc.Key()]
	if !ok || len(history.records) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Record
	for _, rec := range history.records {
		if !rec.Timestamp.Before(from) && !rec.Timestamp.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
