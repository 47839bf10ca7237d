package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/i474232898/cinesky/internal/identity"
	"github.com/i474232898/cinesky/internal/markers"
)

// ErrMissingCredentials is returned by SignUp when email or password is empty.
var ErrMissingCredentials = errors.New("email and password are required")

// State is a snapshot of the session.
type State struct {
	CurrentUser *identity.Identity `json:"currentUser"`
	IsGuest     bool               `json:"isGuest"`
	IsLoading   bool               `json:"isLoading"`
	AuthChecked bool               `json:"authChecked"`
}

// SignedIn reports whether the client may use gated pages, as a real user or a guest.
func (s State) SignedIn() bool {
	return s.CurrentUser != nil || s.IsGuest
}

// Manager owns the authentication state of one client.
//
// Operations are not serialized: callers must not start a second operation
// while State().IsLoading is true. The field mutex only keeps each update
// atomic for readers and is never held across a provider or store call.
type Manager struct {
	provider identity.Provider
	markers  markers.Store
	nav      Navigator
	demo     DemoFallback
	logger   *slog.Logger

	mu          sync.RWMutex
	state       State
	busy        bool // an operation is in flight
	unsubscribe func()
	ctx         context.Context
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used on failure paths.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDemoFallback replaces the built-in demo sign-in policy.
func WithDemoFallback(d DemoFallback) Option {
	return func(m *Manager) { m.demo = d }
}

// NewManager creates a Manager in its initial state
// (loading, not checked, signed out). Call Initialize to start it.
func NewManager(provider identity.Provider, store markers.Store, nav Navigator, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		markers:  store,
		nav:      nav,
		demo:     DefaultDemoFallback(),
		logger:   slog.Default(),
		state:    State{IsLoading: true},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.CurrentUser = s.CurrentUser.Clone()
	return s
}

// Initialize subscribes to the provider's auth changes. ctx is used for
// marker reads and writes done while handling notifications. Calling it
// again while subscribed does nothing.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	m.ctx = context.WithoutCancel(ctx)
	// mark as subscribed before calling out so a second Initialize is a no-op
	m.unsubscribe = func() {}
	m.mu.Unlock()

	unsubscribe := m.provider.Subscribe(m.onAuthChange)

	m.mu.Lock()
	closed := m.unsubscribe == nil
	if !closed {
		m.unsubscribe = unsubscribe
	}
	m.mu.Unlock()

	if closed {
		unsubscribe()
	}
}

// Close releases the provider subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// onAuthChange applies one provider notification. Loading is cleared here
// only when no operation is in flight; an operation clears it itself.
func (m *Manager) onAuthChange(id *identity.Identity) {
	ctx := m.notificationContext()

	if id != nil {
		m.persist(ctx, markers.KeyDisplayName, displayNameOrDefault(id.DisplayName))

		m.mu.Lock()
		m.state.CurrentUser = id.Clone()
		m.state.IsGuest = false
		m.state.IsLoading = m.busy
		m.state.AuthChecked = true
		m.mu.Unlock()
		return
	}

	m.forget(ctx, markers.KeyDisplayName)
	wasGuest := m.guestMarker(ctx)

	m.mu.Lock()
	m.state.CurrentUser = nil
	m.state.IsGuest = wasGuest
	m.state.IsLoading = m.busy
	m.state.AuthChecked = true
	m.mu.Unlock()
}

// SignUp creates an account, names it and signs it in.
func (m *Manager) SignUp(ctx context.Context, email, password, name string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	id, err := m.provider.CreateAccount(ctx, email, password)
	if err != nil {
		m.logger.ErrorContext(ctx, "session: sign up failed", "email", email, "error", err)
		return err
	}
	if err := m.provider.SetDisplayName(ctx, id, name); err != nil {
		m.logger.ErrorContext(ctx, "session: setting display name failed", "email", email, "error", err)
		return err
	}

	m.persist(ctx, markers.KeyDisplayName, name)

	signedIn := id.Clone()
	signedIn.DisplayName = name
	m.setUser(signedIn)

	m.nav.GoTo(RouteHome)
	return nil
}

// SignIn authenticates with the provider. When the provider fails and the
// demo fallback policy matches, the demo identity is signed in locally.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	id, err := m.provider.Authenticate(ctx, email, password)
	if err != nil {
		m.logger.ErrorContext(ctx, "session: sign in failed", "email", email, "error", err)

		if m.demo.Matches(email, password) {
			demo := m.demo.Identity
			m.logger.WarnContext(ctx, "session: using demo identity", "id", demo.ID)
			m.persist(ctx, markers.KeyDisplayName, demo.DisplayName)
			m.setUser(&demo)
			m.nav.GoTo(RouteHome)
			return nil
		}
		return err
	}

	m.persist(ctx, markers.KeyDisplayName, displayNameOrDefault(id.DisplayName))
	m.setUser(id)
	m.nav.GoTo(RouteHome)
	return nil
}

// ContinueAsGuest switches to the local guest identity. It never calls the
// provider and never fails; marker write failures are only logged.
func (m *Manager) ContinueAsGuest(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	m.mu.Lock()
	m.state.CurrentUser = GuestIdentity()
	m.state.IsGuest = true
	m.mu.Unlock()

	m.persist(ctx, markers.KeyDisplayName, GuestDisplayName)
	m.persist(ctx, markers.KeyGuest, "true")

	m.nav.GoTo(RouteHome)
}

// LogOut signs out of the provider and clears both markers.
func (m *Manager) LogOut(ctx context.Context) error {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.ErrorContext(ctx, "session: sign out failed", "error", err)
		return err
	}

	m.forget(ctx, markers.KeyDisplayName)
	m.forget(ctx, markers.KeyGuest)

	m.mu.Lock()
	m.state.CurrentUser = nil
	m.state.IsGuest = false
	m.mu.Unlock()

	m.nav.GoTo(RouteLogin)
	return nil
}

// DisplayName returns the persisted display name marker.
func (m *Manager) DisplayName(ctx context.Context) (string, bool) {
	v, ok, err := m.markers.Get(ctx, markers.KeyDisplayName)
	if err != nil {
		m.logger.WarnContext(ctx, "session: reading display name failed", "error", err)
		return "", false
	}
	return v, ok
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.busy = v
	m.state.IsLoading = v
	m.mu.Unlock()
}

func (m *Manager) setUser(id *identity.Identity) {
	m.mu.Lock()
	m.state.CurrentUser = id.Clone()
	m.state.IsGuest = false
	m.mu.Unlock()
}

func (m *Manager) notificationContext() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

func (m *Manager) persist(ctx context.Context, key, value string) {
	if err := m.markers.Set(ctx, key, value); err != nil {
		m.logger.WarnContext(ctx, "session: persisting marker failed", "key", key, "error", err)
	}
}

func (m *Manager) forget(ctx context.Context, key string) {
	if err := m.markers.Remove(ctx, key); err != nil {
		m.logger.WarnContext(ctx, "session: removing marker failed", "key", key, "error", err)
	}
}

func (m *Manager) guestMarker(ctx context.Context) bool {
	v, ok, err := m.markers.Get(ctx, markers.KeyGuest)
	if err != nil {
		m.logger.WarnContext(ctx, "session: reading guest marker failed", "error", err)
		return false
	}
	return ok && v == "true"
}

func displayNameOrDefault(name string) string {
	if name == "" {
		return DefaultDisplayName
	}
	return name
}
