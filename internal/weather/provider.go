package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLocationNotFound is returned when no provider knows the searched city.
	ErrLocationNotFound = errors.New("city not found")
	// ErrNoReadings is returned when every provider failed for other reasons.
	ErrNoReadings = errors.New("no weather data available")
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a Record.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	City    string
	Country string

	TemperatureC float64
	HumidityPct  float64
	WindSpeedMS  float64
	WindDegrees  *float64
	VisibilityKm float64
	PressureHpa  float64
	PrecipMm     float64

	Condition   Condition
	Main        string
	Description string

	Coordinates *Coordinates
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
// Fetch wraps ErrLocationNotFound when the source does not know the location.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveRecord(loc Location, rec Record)
	GetLatest(loc Location) (Record, error)
	GetRange(loc Location, from, to time.Time) ([]Record, error)
}
