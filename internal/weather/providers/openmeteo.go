package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/i474232898/cinesky/internal/weather"
	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
)

// Geocoder resolves a searched location to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, loc weather.Location) (weather.Coordinates, error)
}

// GoogleGeocoder resolves locations through the Google Geocoding API and
// caches the answers, which do not change.
type GoogleGeocoder struct {
	mu    sync.RWMutex
	cache map[string]weather.Coordinates
	// lookup is swapped in tests.
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder sets the package-wide geocoder API key.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		cache:  make(map[string]weather.Coordinates),
		lookup: geocoder.Geocoding,
	}
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, loc weather.Location) (weather.Coordinates, error) {
	key := loc.Key()
	g.mu.RLock()
	c, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return c, nil
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := g.lookup(geocoder.Address{City: loc.City, Country: loc.Country})
		done <- result{l, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return weather.Coordinates{}, fmt.Errorf("geocode %q: %w: %v", loc.Query(), weather.ErrLocationNotFound, res.err)
	}

	c = weather.Coordinates{Lat: res.loc.Latitude, Lon: res.loc.Longitude}
	g.mu.Lock()
	g.cache[key] = c
	g.mu.Unlock()
	return c, nil
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo only accepts coordinates, so every fetch goes through the geocoder.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	geocoder Geocoder
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, geo Geocoder) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		geocoder: geo,
		httpCfg:  HTTPClientConfig{Client: client, Backoff: DefaultBackoff},
		circuit:  newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.geocoder == nil {
		return weather.ProviderReading{}, errors.New("openmeteo: no geocoder configured")
	}
	coords, err := p.geocoder.Resolve(ctx, loc)
	if err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
		values.Set("current_weather", "true")
		values.Set("current", "relative_humidity_2m,visibility")
		values.Set("windspeed_unit", "ms")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather struct {
			Temperature   float64  `json:"temperature"`
			WindSpeed     float64  `json:"windspeed"`
			WindDirection *float64 `json:"winddirection"`
			Time          string   `json:"time"`
			WeatherCode   int      `json:"weathercode"`
		} `json:"current_weather"`
		Current struct {
			Humidity   float64 `json:"relative_humidity_2m"`
			Visibility float64 `json:"visibility"` // metres
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: decode: %w", err)
	}

	// current_weather.time has no seconds or zone ("2024-05-01T10:00").
	ts, err := time.ParseInLocation("2006-01-02T15:04", payload.CurrentWeather.Time, time.UTC)
	if err != nil {
		ts = time.Now().UTC()
	}

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.CurrentWeather.Temperature,
		HumidityPct:  payload.Current.Humidity,
		WindSpeedMS:  payload.CurrentWeather.WindSpeed,
		WindDegrees:  payload.CurrentWeather.WindDirection,
		VisibilityKm: payload.Current.Visibility / 1000,
		Condition:    mapOpenMeteoCondition(payload.CurrentWeather.WeatherCode),
		Coordinates:  &coords,
	}, nil
}

// WMO weather interpretation codes, simplified.
func mapOpenMeteoCondition(code int) weather.Condition {
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
