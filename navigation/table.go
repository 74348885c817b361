// Package navigation resolves console paths to routes and decides, before
// every transition, whether the operator may enter them.
//
// Routes form a tree like a single-page router's table. A route requires
// authentication when it or any matched ancestor declares RequiresAuth.
// The guard only looks at whether a bearer token is present; token validity
// is left to the gateway's 401 handling on the next data fetch, and
// capability checks are left to individual actions.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ErrNoRoute is returned when nothing, not even a catch-all, matches.
var ErrNoRoute = errors.New("no route matches path")

// Route is one entry of the route table. Child paths that do not start with
// "/" are relative to the parent.
type Route struct {
	Name         string
	Path         string
	Title        string
	RequiresAuth bool
	Hidden       bool
	Redirect     string
	Children     []Route
}

// Match is the result of resolving a path.
type Match struct {
	// FullPath is the path as requested, including the query.
	FullPath string
	Path     string
	Query    url.Values
	Params   map[string]string
	// Chain holds the matched routes from the root to the leaf.
	Chain []*Route
}

// Route returns the matched leaf.
func (m Match) Route() *Route {
	if len(m.Chain) == 0 {
		return nil
	}
	return m.Chain[len(m.Chain)-1]
}

// RequiresAuth reports whether any matched route requires authentication.
func (m Match) RequiresAuth() bool {
	for _, r := range m.Chain {
		if r.RequiresAuth {
			return true
		}
	}
	return false
}

// Param returns a URL parameter such as "id".
func (m Match) Param(name string) string {
	return m.Params[name]
}

// Table is a compiled route tree.
type Table struct {
	mux    *chi.Mux
	routes []Route
	byName map[string]string
}

type resolution struct {
	chain  []*Route
	params map[string]string
}

type resolutionKey struct{}

var paramPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)(\([^)]*\))?\*?`)

// NewTable compiles routes. Duplicate names are rejected.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{mux: chi.NewRouter(), routes: routes, byName: map[string]string{}}
	t.mux.NotFound(func(http.ResponseWriter, *http.Request) {})
	t.mux.MethodNotAllowed(func(http.ResponseWriter, *http.Request) {})

	seen := map[string]bool{}
	var walk func(parentPath string, parents []*Route, rs []Route) error
	walk = func(parentPath string, parents []*Route, rs []Route) error {
		for i := range rs {
			r := &rs[i]
			full := joinPath(parentPath, r.Path)
			chain := append(append([]*Route(nil), parents...), r)
			pattern := chiPattern(full)
			if seen[pattern] {
				return fmt.Errorf("duplicate route path %q", full)
			}
			seen[pattern] = true
			if r.Name != "" {
				if _, dup := t.byName[r.Name]; dup {
					return fmt.Errorf("duplicate route name %q", r.Name)
				}
				t.byName[r.Name] = full
			}
			t.mux.Get(pattern, capture(chain))
			if err := walk(full, chain, r.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", nil, t.routes); err != nil {
		return nil, err
	}
	return t, nil
}

func capture(chain []*Route) http.HandlerFunc {
	return func(_ http.ResponseWriter, req *http.Request) {
		res, _ := req.Context().Value(resolutionKey{}).(*resolution)
		if res == nil {
			return
		}
		res.chain = chain
		rctx := chi.RouteContext(req.Context())
		for i, k := range rctx.URLParams.Keys {
			res.params[k] = rctx.URLParams.Values[i]
		}
	}
}

// Resolve matches fullPath, which may carry a query string.
func (t *Table) Resolve(fullPath string) (Match, error) {
	u, err := url.Parse(fullPath)
	if err != nil {
		return Match{}, fmt.Errorf("parsing path %q: %w", fullPath, err)
	}
	p := cleanPath(u.Path)

	res := &resolution{params: map[string]string{}}
	ctx := context.WithValue(context.Background(), resolutionKey{}, res)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return Match{}, fmt.Errorf("resolving %q: %w", fullPath, err)
	}
	req.URL = &url.URL{Path: p}
	t.mux.ServeHTTP(discardWriter{}, req)
	if res.chain == nil {
		return Match{}, fmt.Errorf("%w: %s", ErrNoRoute, p)
	}

	full := p
	if u.RawQuery != "" {
		full += "?" + u.RawQuery
	}
	return Match{
		FullPath: full,
		Path:     p,
		Query:    u.Query(),
		Params:   res.params,
		Chain:    res.chain,
	}, nil
}

// PathOf returns the declared path of the named route.
func (t *Table) PathOf(name string) (string, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// MenuEntry is a visible, titled route for listing.
type MenuEntry struct {
	Path  string
	Title string
	Depth int
}

// Menu lists the titled, non-hidden routes that take no parameters.
func (t *Table) Menu() []MenuEntry {
	var out []MenuEntry
	var walk func(parentPath string, depth int, rs []Route)
	walk = func(parentPath string, depth int, rs []Route) {
		for _, r := range rs {
			full := joinPath(parentPath, r.Path)
			if r.Title != "" && !r.Hidden && !strings.Contains(full, ":") {
				out = append(out, MenuEntry{Path: full, Title: r.Title, Depth: depth})
			}
			walk(full, depth+1, r.Children)
		}
	}
	walk("", 0, t.routes)
	return out
}

func joinPath(parent, p string) string {
	if strings.HasPrefix(p, "/") {
		return cleanPath(p)
	}
	return cleanPath(path.Join("/", parent, p))
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

// chiPattern turns "/campaigns/:id" into "/campaigns/{id}" and a trailing
// catch-all such as "/:pathMatch(.*)*" into "/*".
func chiPattern(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		if strings.Contains(s, "(.*)") {
			segs[i] = "*"
			segs = segs[:i+1]
			break
		}
		segs[i] = paramPattern.ReplaceAllString(s, "{$1}")
	}
	return strings.Join(segs, "/")
}

type discardWriter struct{}

func (discardWriter) Header() http.Header         { return http.Header{} }
func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (discardWriter) WriteHeader(int)             {}
