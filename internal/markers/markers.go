// Package markers persists the small per-client values that must survive a
// reload: the display name and the guest flag.
package markers

import (
	"context"
	"errors"
)

// Keys used by the session manager.
const (
	KeyDisplayName = "userName"
	KeyGuest       = "isGuest"
)

// ErrPersistence wraps every failure of a Store implementation.
var ErrPersistence = errors.New("marker persistence failed")

// Store is a string key/value store scoped to one client.
// Get reports ok=false for a missing key; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Scoped prefixes every key with the client id so many clients share one backend.
func Scoped(b Store, clientID string) Store {
	return &scoped{backend: b, prefix: "client:" + clientID + ":"}
}

type scoped struct {
	backend Store
	prefix  string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.backend.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.backend.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, s.prefix+key)
}
