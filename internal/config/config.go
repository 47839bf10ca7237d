package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/i474232898/cinesky/internal/weather"
)

// Identity provider modes.
const (
	IdentityLocal = "local"
	IdentityNone  = "none"
)

type AppConfig struct {
	Port string `env:"PORT" envDefault:"8080"`

	OpenWeatherAPIKey string        `env:"OPENWEATHER_API_KEY"`
	WeatherAPIKey     string        `env:"WEATHERAPI_API_KEY"`
	GeocoderAPIKey    string        `env:"GEOCODER_API_KEY"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// FetchInterval controls how often popular cities are refreshed.
	FetchInterval time.Duration `env:"FETCH_INTERVAL" envDefault:"15m"`
	// PopularCities are "City" or "City:Country" entries.
	PopularCities []string `env:"POPULAR_CITIES" envSeparator:"," envDefault:"London,New York,Tokyo,Paris,Sydney,Dubai,Toronto,Singapore,Berlin,Mumbai"`

	// In-memory store retention.
	StoreMaxHistory int           `env:"STORE_MAX_HISTORY" envDefault:"96"` // roughly 24h at 15-minute intervals
	StoreMaxAge     time.Duration `env:"STORE_MAX_AGE" envDefault:"24h"`

	// Markers go to Redis when RedisAddr is set, memory otherwise.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	MarkerTTL     time.Duration `env:"MARKER_TTL" envDefault:"720h"`

	IdentityProvider    string        `env:"IDENTITY_PROVIDER" envDefault:"local"`
	DemoFallbackEnabled bool          `env:"DEMO_FALLBACK_ENABLED" envDefault:"true"`
	ClientCookie        string        `env:"CLIENT_COOKIE" envDefault:"cinesky_client"`
	ClientIdleTimeout   time.Duration `env:"CLIENT_IDLE_TIMEOUT" envDefault:"30m"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads a .env file when present and parses the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c AppConfig) validate() error {
	var errs []error
	switch c.IdentityProvider {
	case IdentityLocal, IdentityNone:
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", IdentityLocal, IdentityNone, c.IdentityProvider))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.FetchInterval < time.Minute {
		errs = append(errs, errors.New("FETCH_INTERVAL must be at least 1m"))
	}
	if strings.TrimSpace(c.ClientCookie) == "" {
		errs = append(errs, errors.New("CLIENT_COOKIE must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Locations returns PopularCities as weather locations, skipping blanks.
func (c AppConfig) Locations() []weather.Location {
	locs := make([]weather.Location, 0, len(c.PopularCities))
	for _, entry := range c.PopularCities {
		city, country, _ := strings.Cut(entry, ":")
		city = strings.TrimSpace(city)
		if city == "" {
			continue
		}
		locs = append(locs, weather.Location{City: city, Country: strings.TrimSpace(country)})
	}
	return locs
}
