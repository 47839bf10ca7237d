package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/cinesky/internal/session"
	"github.com/i474232898/cinesky/internal/weather"
)

// WeatherService is what the handlers need from weather.Service.
type WeatherService interface {
	FetchCurrent(ctx context.Context, loc weather.Location) (weather.Record, error)
	GetLatest(loc weather.Location) (weather.Record, error)
	GetRange(loc weather.Location, from, to time.Time) ([]weather.Record, error)
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Sessions      *session.Registry
	Weather       WeatherService
	PopularCities []weather.Location
	// ClientCookie names the cookie carrying the client id.
	ClientCookie string
	Logger       *slog.Logger
	// AccessLog enables Fiber's request logger.
	AccessLog bool
}

// NewApp builds the Fiber app with the centralized error handler, global
// middleware, the health endpoint and the API routes.
func NewApp(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ClientCookie == "" {
		deps.ClientCookie = "cinesky_client"
	}

	app := fiber.New(fiber.Config{
		AppName:               "cinesky",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	if deps.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "cinesky",
		})
	})

	RegisterRoutes(app, deps)
	return app
}

// redirectError is an HTTP error that also tells the client where to go.
type redirectError struct {
	code     int
	message  string
	redirect session.Route
}

func (e *redirectError) Error() string { return e.message }

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		body := fiber.Map{"error": true, "message": err.Error()}

		var re *redirectError
		var fe *fiber.Error
		switch {
		case errors.As(err, &re):
			code = re.code
			body["redirect"] = re.redirect
		case errors.As(err, &fe):
			code = fe.Code
		}

		if code >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(body)
	}
}
