package identity

import (
	"context"
	"errors"
	"fmt"
)

// Identity is a signed-in principal as reported by a Provider.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Clone returns a copy detached from the provider's internal state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

var (
	// ErrCredential is the class of errors where the provider rejected
	// the submitted credentials. Use errors.Is to test for it.
	ErrCredential = errors.New("credentials rejected")

	// ErrProviderUnavailable is returned when the provider cannot serve
	// the call at all (not configured, backend down).
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrCredential)
	ErrEmailInUse         = fmt.Errorf("%w: email already in use", ErrCredential)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", ErrCredential, MinPasswordLength)
	ErrUserNotFound       = errors.New("user not found")
)

// MinPasswordLength is the shortest password CreateAccount accepts.
const MinPasswordLength = 6

// Provider is the identity backend consumed by the session manager.
//
// Subscribe registers onChange and immediately delivers the current identity
// (nil when signed out); afterwards onChange runs on every sign-in and
// sign-out. The returned function releases the subscription.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	SetDisplayName(ctx context.Context, id *Identity, name string) error
	Subscribe(onChange func(*Identity)) (unsubscribe func())
}

// Source hands out a Provider bound to one browser client.
type Source interface {
	ProviderFor(clientID string) Provider
}
