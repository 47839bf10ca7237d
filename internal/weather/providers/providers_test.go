package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/cinesky/internal/weather"
	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestOpenWeatherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "London,GB", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dt": 1714557600, "name": "London",
			"coord": {"lat": 51.5085, "lon": -0.1257},
			"sys": {"country": "GB"},
			"main": {"temp": 14.2, "humidity": 72, "pressure": 1012},
			"visibility": 10000,
			"wind": {"speed": 4.1, "deg": 240},
			"weather": [{"main": "Clouds", "description": "overcast clouds"}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), weather.Location{City: "London", Country: "GB"})
	require.NoError(t, err)
	assert.Equal(t, "London", r.City)
	assert.Equal(t, "GB", r.Country)
	assert.Equal(t, 14.2, r.TemperatureC)
	assert.Equal(t, 10.0, r.VisibilityKm)
	require.NotNil(t, r.WindDegrees)
	assert.Equal(t, 240.0, *r.WindDegrees)
	assert.Equal(t, weather.ConditionCloudy, r.Condition)
	assert.Equal(t, "overcast clouds", r.Description)
	require.NotNil(t, r.Coordinates)
	assert.Equal(t, 51.5085, r.Coordinates.Lat)
	assert.Equal(t, time.Unix(1714557600, 0).UTC(), r.Timestamp)
}

func TestOpenWeatherNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	_, err := p.Fetch(context.Background(), weather.Location{City: "Atlantis"})
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, gobreaker.StateClosed, p.circuit.State())
	assert.Equal(t, uint32(0), p.circuit.Counts().TotalFailures)
}

func TestOpenWeatherMissingKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	_, err := p.Fetch(context.Background(), weather.Location{City: "Paris"})
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"location":{"name":"Paris","country":"France","lat":48.87,"lon":2.33},
			"current":{"temp_c":18,"humidity":50,"wind_kph":36,"wind_degree":90,"vis_km":10,
			"pressure_mb":1015,"condition":{"text":"Partly cloudy"}}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	r, err := p.Fetch(context.Background(), weather.Location{City: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "France", r.Country)
	assert.InDelta(t, 10, r.WindSpeedMS, 1e-9)
	assert.Equal(t, weather.ConditionCloudy, r.Condition)
	assert.Equal(t, "Partly cloudy", r.Main)
}

func TestRetriesGiveUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	_, err := p.Fetch(context.Background(), weather.Location{City: "Paris"})
	assert.ErrorIs(t, err, errServerError)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWeatherAPIBadRequestMeansNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":1006,"message":"No matching location found."}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), weather.Location{City: "Atlantis"})
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]weather.Condition{
		"":                              weather.ConditionUnknown,
		"Sunny":                         weather.ConditionClear,
		"Overcast":                      weather.ConditionCloudy,
		"Light rain shower":             weather.ConditionRain,
		"Patchy light snow":             weather.ConditionSnow,
		"Thundery outbreaks possible":   weather.ConditionStorm,
		"Moderate rain with thunder":    weather.ConditionStorm,
		"Freezing fog":                  weather.ConditionMist,
		"Something the API never sends": weather.ConditionUnknown,
	}
	for text, want := range cases {
		assert.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}

type fixedGeocoder struct {
	c   weather.Coordinates
	err error
}

func (g fixedGeocoder) Resolve(context.Context, weather.Location) (weather.Coordinates, error) {
	return g.c, g.err
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "35.6762", r.URL.Query().Get("latitude"))
		assert.Equal(t, "ms", r.URL.Query().Get("windspeed_unit"))
		assert.Equal(t, "relative_humidity_2m,visibility", r.URL.Query().Get("current"))
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":21.5,"windspeed":3.2,
			"winddirection":180,"time":"2024-05-01T10:00","weathercode":45},
			"current":{"relative_humidity_2m":88,"visibility":2400}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), fixedGeocoder{c: weather.Coordinates{Lat: 35.6762, Lon: 139.6503}})
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), weather.Location{City: "Tokyo"})
	require.NoError(t, err)
	assert.Equal(t, 21.5, r.TemperatureC)
	assert.Equal(t, weather.ConditionMist, r.Condition)
	assert.Equal(t, 88.0, r.HumidityPct)
	assert.InDelta(t, 2.4, r.VisibilityKm, 1e-9)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), r.Timestamp)
	require.NotNil(t, r.Coordinates)
	assert.Equal(t, 139.6503, r.Coordinates.Lon)
}

func TestOpenMeteoWithoutCurrentBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":9,"windspeed":9,
			"time":"2024-05-01T10:00","weathercode":61}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), fixedGeocoder{c: weather.Coordinates{Lat: 51.5, Lon: -0.12}})
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), weather.Location{City: "London"})
	require.NoError(t, err)

	rec := weather.AggregateReadings(weather.Location{City: "London"}, []weather.ProviderReading{r})
	assert.Nil(t, rec.Humidity)
	assert.Nil(t, rec.VisibilityKm)
	assert.Equal(t, []string{weather.TipChallenging}, weather.PhotographyConditions(rec))
}

func TestOpenMeteoGeocodeFailure(t *testing.T) {
	p := NewOpenMeteoProvider(http.DefaultClient, fixedGeocoder{err: weather.ErrLocationNotFound})
	_, err := p.Fetch(context.Background(), weather.Location{City: "Atlantis"})
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestGoogleGeocoderCaches(t *testing.T) {
	calls := 0
	g := NewGoogleGeocoder("")
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		calls++
		if a.City == "Atlantis" {
			return geocoder.Location{}, errors.New("ZERO_RESULTS")
		}
		return geocoder.Location{Latitude: 1.35, Longitude: 103.82}, nil
	}

	for range 2 {
		c, err := g.Resolve(context.Background(), weather.Location{City: "Singapore"})
		require.NoError(t, err)
		assert.Equal(t, weather.Coordinates{Lat: 1.35, Lon: 103.82}, c)
	}
	assert.Equal(t, 1, calls)

	_, err := g.Resolve(context.Background(), weather.Location{City: "Atlantis"})
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}
