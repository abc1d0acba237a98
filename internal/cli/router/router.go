// Package router decides which view a navigation ends up on, given the
// target route's access flags and whether the session is logged in.
package router

import (
	"errors"
	"fmt"
	"sync"
)

const (
	HomePath     = "/"
	LoginPath    = "/login"
	RegisterPath = "/register"
	AddPostPath  = "/add"

	maxRedirects = 5
)

var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrNavigationDuplicated = errors.New("navigation to the current route")
	ErrTooManyRedirects     = errors.New("too many redirects")
)

// Meta holds the access flags of a route
type Meta struct {
	AuthRequired    bool
	VisitorRequired bool
}

// Route is a navigable path
type Route struct {
	Path string
	Name string
	Meta Meta
}

// Action is the outcome of a guard check
type Action int

const (
	Allow Action = iota
	Redirect
)

// Decision is what the guard says about a navigation. Target is set for Redirect.
type Decision struct {
	Action Action
	Target string
}

func (d Decision) String() string {
	if d.Action == Redirect {
		return "redirect(" + d.Target + ")"
	}
	return "allow"
}

// Guard is the access policy for a route. It has no side effects.
func Guard(meta Meta, loggedIn bool) Decision {
	switch {
	case meta.AuthRequired && !loggedIn:
		return Decision{Action: Redirect, Target: LoginPath}
	case meta.VisitorRequired && loggedIn:
		return Decision{Action: Redirect, Target: HomePath}
	default:
		return Decision{Action: Allow}
	}
}

// DefaultRoutes returns the client's routes
func DefaultRoutes() []Route {
	return []Route{
		{Path: HomePath, Name: "dashboard"},
		{Path: LoginPath, Name: "login", Meta: Meta{VisitorRequired: true}},
		{Path: RegisterPath, Name: "register", Meta: Meta{VisitorRequired: true}},
		{Path: AddPostPath, Name: "add", Meta: Meta{AuthRequired: true}},
	}
}

// SessionState is what the router needs to know about the session
type SessionState interface {
	IsLoggedIn() bool
}

// Router is the navigation controller. It evaluates the guard before every
// navigation and tracks the active route.
type Router struct {
	routes  map[string]Route
	session SessionState

	mu      sync.Mutex
	current string
}

// New creates a router over routes
func New(routes []Route, session SessionState) *Router {
	r := &Router{
		routes:  make(map[string]Route, len(routes)),
		session: session,
	}
	for _, route := range routes {
		r.routes[route.Path] = route
	}
	return r
}

// Current returns the active route path, empty before the first navigation
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Lookup returns the route registered for path
func (r *Router) Lookup(path string) (Route, bool) {
	route, ok := r.routes[path]
	return route, ok
}

// Navigate resolves path through the guard, following redirects, and makes
// the result the active route. Navigating to the active route is not an error.
func (r *Router) Navigate(path string) (Route, error) {
	route, err := r.push(path)
	if errors.Is(err, ErrNavigationDuplicated) {
		return route, nil
	}
	return route, err
}

func (r *Router) push(path string) (Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := path
	for i := 0; i <= maxRedirects; i++ {
		route, ok := r.routes[target]
		if !ok {
			return Route{}, fmt.Errorf("%w: %s", ErrRouteNotFound, target)
		}

		decision := Guard(route.Meta, r.session.IsLoggedIn())
		if decision.Action == Redirect {
			target = decision.Target
			continue
		}

		if route.Path == r.current {
			return route, ErrNavigationDuplicated
		}
		r.current = route.Path
		return route, nil
	}
	return Route{}, fmt.Errorf("%w: navigating to %s", ErrTooManyRedirects, path)
}
