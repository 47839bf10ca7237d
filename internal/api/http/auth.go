package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/cinesky/internal/identity"
	"github.com/i474232898/cinesky/internal/session"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=80"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	State       session.State `json:"state"`
	DisplayName string        `json:"displayName,omitempty"`
	Redirect    session.Route `json:"redirect,omitempty"`
}

func registerAuthRoutes(v1 fiber.Router) {
	auth := v1.Group("/auth")

	auth.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(sessionView(c, clientFrom(c)))
	})

	auth.Post("/signup", exclusive(func(c *fiber.Ctx, cl *session.Client) error {
		var req signUpRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		return cl.Manager.SignUp(c.UserContext(), req.Email, req.Password, req.Name)
	}))

	auth.Post("/signin", exclusive(func(c *fiber.Ctx, cl *session.Client) error {
		var req signInRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		return cl.Manager.SignIn(c.UserContext(), req.Email, req.Password)
	}))

	auth.Post("/guest", exclusive(func(c *fiber.Ctx, cl *session.Client) error {
		cl.Manager.ContinueAsGuest(c.UserContext())
		return nil
	}))

	auth.Post("/logout", exclusive(func(c *fiber.Ctx, cl *session.Client) error {
		return cl.Manager.LogOut(c.UserContext())
	}))
}

// exclusive runs op while holding the client's operation claim and renders
// the resulting session. A second operation for the same client gets 409.
func exclusive(op func(c *fiber.Ctx, cl *session.Client) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cl := clientFrom(c)
		if cl == nil {
			return fiber.ErrInternalServerError
		}
		if !cl.TryBegin() {
			return fiber.NewError(fiber.StatusConflict, "another session operation is in progress")
		}
		defer cl.End()

		if err := op(c, cl); err != nil {
			return sessionError(err)
		}
		return c.JSON(sessionView(c, cl))
	}
}

func sessionView(c *fiber.Ctx, cl *session.Client) sessionResponse {
	resp := sessionResponse{State: cl.Manager.State()}
	resp.DisplayName, _ = cl.Manager.DisplayName(c.UserContext())
	if r, ok := cl.Routes.TakePending(); ok {
		resp.Redirect = r
	}
	return resp
}

func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// sessionError maps manager and provider errors to HTTP statuses. Messages
// are the provider's own.
func sessionError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return err
	case errors.Is(err, session.ErrMissingCredentials), errors.Is(err, identity.ErrWeakPassword):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrEmailInUse):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrCredential):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrProviderUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
