package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/cinesky/internal/session"
)

const (
	clientLocal     = "client"
	clientCookieAge = 30 * 24 * time.Hour
)

// clientMiddleware resolves the browser client from its cookie, issuing a
// new id when the cookie is missing or malformed.
func clientMiddleware(reg *session.Registry, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Cookie(&fiber.Cookie{
			Name:     cookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(clientCookieAge.Seconds()),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		cl, err := reg.Get(c.UserContext(), id)
		if errors.Is(err, session.ErrRegistryClosed) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "server is shutting down")
		}
		if err != nil {
			return err
		}
		c.Locals(clientLocal, cl)
		return c.Next()
	}
}

func clientFrom(c *fiber.Ctx) *session.Client {
	cl, _ := c.Locals(clientLocal).(*session.Client)
	return cl
}

// requireSession admits clients that are signed in or continuing as guest.
func requireSession(c *fiber.Ctx) error {
	cl := clientFrom(c)
	if cl == nil {
		return fiber.ErrInternalServerError
	}
	if cl.Manager.State().SignedIn() {
		return c.Next()
	}
	cl.Routes.GoTo(session.RouteLogin)
	cl.Routes.TakePending()
	return &redirectError{
		code:     fiber.StatusUnauthorized,
		message:  "sign in or continue as guest",
		redirect: session.RouteLogin,
	}
}
