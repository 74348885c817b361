package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmcleod/adconsole/session"
)

const (
	// TitleSuffix is appended to every page title.
	TitleSuffix = "DSP Admin"

	maxRedirects = 8
)

// ErrRedirectLoop is returned when a navigation keeps redirecting.
var ErrRedirectLoop = errors.New("too many redirects")

// Location is a settled navigation.
type Location struct {
	Match
	// Title is the page title, "<route title> - DSP Admin".
	Title string
}

// View is run after a route is entered. Views fetch their data through
// the gateway.
type View func(ctx context.Context, loc Location) error

// Router performs guarded navigation and keeps the current location.
type Router struct {
	table  *Table
	guard  Guard
	reader session.Reader
	logger *slog.Logger

	mu      sync.Mutex
	current *Location
	history []Location
	views   map[string]View
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithLoginPath overrides the login entry point.
func WithLoginPath(p string) RouterOption {
	return func(r *Router) { r.guard.LoginPath = p }
}

// NewRouter returns a router over table that reads the session from reader.
func NewRouter(table *Table, reader session.Reader, opts ...RouterOption) *Router {
	r := &Router{
		table:  table,
		reader: reader,
		logger: slog.Default(),
		views:  map[string]View{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	return r
}

// Table returns the route table.
func (r *Router) Table() *Table {
	return r.table
}

// OnEnter registers the view run when the named route is entered.
func (r *Router) OnEnter(routeName string, v View) {
	r.mu.Lock()
	r.views[routeName] = v
	r.mu.Unlock()
}

// Navigate resolves path, follows route and guard redirects, records the
// resulting location and runs its view. The returned error is the view's
// error when the transition itself succeeded.
func (r *Router) Navigate(ctx context.Context, path string) (Location, error) {
	loc, err := r.settle(path)
	if err != nil {
		return Location{}, err
	}
	return loc, r.enter(ctx, loc)
}

func (r *Router) settle(path string) (Location, error) {
	target := path
	for i := 0; i <= maxRedirects; i++ {
		m, err := r.table.Resolve(target)
		if err != nil {
			return Location{}, err
		}
		if leaf := m.Route(); leaf != nil && leaf.Redirect != "" {
			target = leaf.Redirect
			continue
		}
		d := r.guard.Check(m, r.reader.Snapshot())
		if !d.Allow {
			r.logger.Debug("navigation redirected", slog.String("from", m.FullPath), slog.String("to", d.Redirect))
			target = d.Redirect
			continue
		}
		loc := Location{Match: m, Title: pageTitle(m)}
		r.mu.Lock()
		r.current = &loc
		r.history = append(r.history, loc)
		r.mu.Unlock()
		return loc, nil
	}
	return Location{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

func (r *Router) enter(ctx context.Context, loc Location) error {
	leaf := loc.Route()
	if leaf == nil {
		return nil
	}
	r.mu.Lock()
	v := r.views[leaf.Name]
	r.mu.Unlock()
	if v == nil {
		return nil
	}
	return v(ctx, loc)
}

// Back returns to the previous location, re-running the guard.
func (r *Router) Back(ctx context.Context) (Location, error) {
	r.mu.Lock()
	if len(r.history) < 2 {
		r.mu.Unlock()
		return Location{}, errors.New("no previous location")
	}
	prev := r.history[len(r.history)-2]
	r.history = r.history[:len(r.history)-2]
	r.mu.Unlock()
	return r.Navigate(ctx, prev.FullPath)
}

// Current returns the current location.
func (r *Router) Current() (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Location{}, false
	}
	return *r.current, true
}

// History returns the visited locations, oldest first.
func (r *Router) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Location(nil), r.history...)
}

// RedirectToLogin moves to the login entry point, carrying the current
// path as the return target. It does nothing when already there, so
// concurrent callers land on the same location once.
func (r *Router) RedirectToLogin(ctx context.Context) error {
	login := r.guard.loginPath()
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()

	target := login
	if cur != nil {
		if cur.Path == login {
			return nil
		}
		target = r.guard.loginURL(cur.FullPath)
	}
	_, err := r.settle(target)
	return err
}

// ReturnTarget is where to go after a successful login: the return target
// carried by the current login location, or DefaultHome.
func (r *Router) ReturnTarget() string {
	cur, ok := r.Current()
	if !ok || cur.Path != r.guard.loginPath() {
		return DefaultHome
	}
	target := cur.Query.Get(ReturnParam)
	// Only local paths; "//host" would leave the console.
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return DefaultHome
	}
	return target
}

func pageTitle(m Match) string {
	leaf := m.Route()
	if leaf == nil || leaf.Title == "" {
		return TitleSuffix
	}
	return leaf.Title + " - " + TitleSuffix
}
