package weather

import (
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Location is a searched place. Country is optional.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return strings.ToLower(strings.TrimSpace(l.City)) + ":" + strings.ToLower(strings.TrimSpace(l.Country))
}

// Query renders the location the way the weather APIs expect ("city,country").
func (l Location) Query() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + "," + l.Country
}

// Coordinates in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Record is the normalized, aggregated current weather for a searched location.
type Record struct {
	// Location is the searched location; City/Country below are what the
	// providers resolved it to.
	Location  Location  `json:"location"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"` // always UTC

	// Humidity and VisibilityKm are nil when no provider reported them.
	TemperatureC float64  `json:"temperatureC"`
	Humidity     *float64 `json:"humidityPercent,omitempty"`
	WindSpeed    float64  `json:"windSpeed"` // m/s
	WindDegrees  *float64 `json:"windDegrees,omitempty"`
	VisibilityKm *float64 `json:"visibilityKm,omitempty"`
	Pressure     float64  `json:"pressureHpa"`
	PrecipMM     float64  `json:"precipMm"`

	Condition   Condition `json:"condition"`
	Main        string    `json:"main"`
	Description string    `json:"description"`

	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// Providers contributing to this record.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
