package session

import "github.com/i474232898/cinesky/internal/identity"

// Fixed display names.
const (
	DefaultDisplayName = "User"
	GuestDisplayName   = "Guest User"
)

// GuestIdentity is the local-only pseudo identity used by ContinueAsGuest.
func GuestIdentity() *identity.Identity {
	return &identity.Identity{
		ID:          "guest-user-id",
		DisplayName: GuestDisplayName,
		Email:       "guest@example.com",
	}
}

// DemoFallback keeps sign-in usable when the identity provider is not set up:
// if the provider call fails and the submitted credentials equal Email and
// Password exactly, SignIn succeeds with the local Identity instead.
type DemoFallback struct {
	Enabled  bool
	Email    string
	Password string
	Identity identity.Identity
}

// DefaultDemoFallback returns the built-in demo account, enabled.
func DefaultDemoFallback() DemoFallback {
	return DemoFallback{
		Enabled:  true,
		Email:    "demo@example.com",
		Password: "password",
		Identity: identity.Identity{
			ID:          "demo-user-id",
			DisplayName: "Demo User",
			Email:       "demo@example.com",
		},
	}
}

// Matches reports whether the policy applies to the submitted credentials.
func (d DemoFallback) Matches(email, password string) bool {
	return d.Enabled && email == d.Email && password == d.Password
}
