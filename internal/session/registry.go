package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/cinesky/internal/identity"
	"github.com/i474232898/cinesky/internal/markers"
)

// ErrRegistryClosed is returned by Get once the registry has been closed.
var ErrRegistryClosed = errors.New("session: registry closed")

// Client bundles the session of one browser client with its navigation state.
type Client struct {
	ID      string
	Manager *Manager
	Routes  *RouteTracker

	// ready is closed once Manager has been initialized.
	ready chan struct{}

	op       sync.Mutex
	mu       sync.Mutex
	lastSeen time.Time
}

// TryBegin claims the client for one session operation. It returns false
// while another operation is running, the way a disabled submit button
// would reject a second click.
func (c *Client) TryBegin() bool {
	return c.op.TryLock()
}

// End releases the claim taken by TryBegin.
func (c *Client) End() {
	c.op.Unlock()
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Registry creates and owns one Client per browser client id.
type Registry struct {
	identities identity.Source
	markers    markers.Store
	opts       []Option
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// NewRegistry creates a registry. Markers of each client are stored in
// backend under a per-client scope.
func NewRegistry(identities identity.Source, backend markers.Store, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		identities: identities,
		markers:    backend,
		opts:       append([]Option{WithLogger(logger)}, opts...),
		logger:     logger,
		now:        time.Now,
		clients:    make(map[string]*Client),
	}
}

// Get returns the client for id, creating and initializing it on first use.
// Concurrent callers for a new id wait until its session has been rehydrated.
func (r *Registry) Get(ctx context.Context, id string) (*Client, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	c, ok := r.clients[id]
	if !ok {
		c = &Client{
			ID:     id,
			Routes: NewRouteTracker(""),
			ready:  make(chan struct{}),
		}
		c.Manager = NewManager(
			r.identities.ProviderFor(id),
			markers.Scoped(r.markers, id),
			c.Routes,
			r.opts...,
		)
		r.clients[id] = c
	}
	r.mu.Unlock()

	c.touch(r.now())
	if !ok {
		c.Manager.Initialize(ctx)
		close(c.ready)
		r.logger.DebugContext(ctx, "session: client initialized", "client", id)
		return c, nil
	}

	select {
	case <-c.ready:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle for longer than maxIdle and returns how many
// were removed. A removed client is rehydrated from its markers and the
// identity provider on its next request.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Client
	for id, c := range r.clients {
		if c.idleSince().Before(cutoff) {
			stale = append(stale, c)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Manager.Close()
	}
	return len(stale)
}

// Close tears down every client and their provider subscriptions.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Manager.Close()
	}
}
