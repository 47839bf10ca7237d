package session

import "sync"

// Route is a named destination in the presentation layer.
type Route string

const (
	RouteHome  Route = "/home"
	RouteLogin Route = "/login"
)

// Navigator receives fire-and-forget redirect requests.
type Navigator interface {
	GoTo(route Route)
}

// RouteTracker is the Navigator used by the HTTP layer. It remembers where
// the client is and holds the latest redirect until the response picks it up.
// Navigating to the current route is a no-op.
type RouteTracker struct {
	mu      sync.Mutex
	current Route
	pending Route
}

// NewRouteTracker starts the client on the given route ("" for unknown).
func NewRouteTracker(start Route) *RouteTracker {
	return &RouteTracker{current: start}
}

func (t *RouteTracker) GoTo(route Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if route == t.current {
		return
	}
	t.current = route
	t.pending = route
}

// Current returns the route the client is on.
func (t *RouteTracker) Current() Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// TakePending returns the redirect requested since the last call and clears it.
func (t *RouteTracker) TakePending() (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.pending
	t.pending = ""
	return r, r != ""
}
