package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/cinesky/internal/config"
	"github.com/i474232898/cinesky/internal/identity"
	"github.com/i474232898/cinesky/internal/markers"
	"github.com/i474232898/cinesky/internal/session"
	"github.com/i474232898/cinesky/internal/store"
	"github.com/i474232898/cinesky/internal/weather"
	"github.com/i474232898/cinesky/internal/weather/providers"
)

func newWeatherService(cfg *config.AppConfig, log *slog.Logger) *weather.Service {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	var provs []weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	// Open-Meteo needs no key of its own, but coordinates come from Google geocoding.
	if cfg.GeocoderAPIKey != "" {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient, providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)))
	}
	if len(provs) == 0 {
		log.Warn("no weather providers configured; set OPENWEATHER_API_KEY, WEATHERAPI_API_KEY or GEOCODER_API_KEY")
	}

	return weather.NewService(memStore, provs, log.With("component", "weather"))
}

func newIdentitySource(cfg *config.AppConfig) identity.Source {
	if cfg.IdentityProvider == config.IdentityNone {
		return identity.Unconfigured{}
	}
	return identity.NewDirectory(bcrypt.DefaultCost)
}

// newMarkerStore returns the Redis store when REDIS_ADDR is set. The
// returned close func is never nil.
func newMarkerStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (markers.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("markers kept in memory")
		return markers.NewMemoryStore(), func() {}, nil
	}

	client, err := markers.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("markers kept in redis", "addr", cfg.RedisAddr)
	return markers.NewRedisStore(client, cfg.MarkerTTL), func() { closeRedis(client, log) }, nil
}

func closeRedis(client *redis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("closing redis", "error", err)
	}
}

func sessionOptions(cfg *config.AppConfig) []session.Option {
	demo := session.DefaultDemoFallback()
	demo.Enabled = cfg.DemoFallbackEnabled
	return []session.Option{session.WithDemoFallback(demo)}
}
