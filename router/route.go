// Package router maps console paths to views and gates protected views behind the stored
// credential.
package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// View identifies what the console renders for a route.
type View string

const (
	LoginView     View = "LoginView"
	VMListView    View = "VMListView"
	DashboardView View = "DashboardView"
)

const (
	LoginPath     = "/login"
	HomePath      = "/"
	DashboardPath = "/dashboard/:vmId"
)

var (
	ErrRouteNotFound = errors.New("no route matches path")
	ErrRedirectLoop  = errors.New("too many navigation redirects")
	ErrUnknownRoute  = errors.New("unknown route name")
)

// Route maps a static path pattern to a view. Segments starting with ':' are parameters.
type Route struct {
	Name         string
	Path         string
	View         View
	RequiresAuth bool

	segments []string
}

// Params holds the values bound to a route's ':name' segments.
type Params map[string]string

// Location is a resolved navigation target.
type Location struct {
	Path   string
	Name   string
	View   View
	Params Params

	requiresAuth bool
}

// RequiresAuth reports whether the matched route is protected.
func (l Location) RequiresAuth() bool { return l.requiresAuth }

// IsZero reports whether no navigation has happened yet.
func (l Location) IsZero() bool { return l.Path == "" }

// DefaultRoutes is the console route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "login", Path: LoginPath, View: LoginView},
		{Name: "vms", Path: HomePath, View: VMListView, RequiresAuth: true},
		{Name: "dashboard", Path: DashboardPath, View: DashboardView, RequiresAuth: true},
	}
}

// DashboardLocation builds the dashboard path for a VM.
func DashboardLocation(vmID string) string {
	return "/dashboard/" + url.PathEscape(vmID)
}

// Table is an immutable, ordered set of routes. The first matching route wins.
type Table struct {
	routes []Route
	byName map[string]int
}

// NewTable validates and compiles routes.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(routes))}
	seenPaths := make(map[string]bool, len(routes))

	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %q: path %q must start with /", r.Name, r.Path)
		}
		if r.View == "" {
			return nil, fmt.Errorf("route %q: view is required", r.Path)
		}
		if seenPaths[r.Path] {
			return nil, fmt.Errorf("duplicate route path %q", r.Path)
		}
		seenPaths[r.Path] = true
		if r.Name != "" {
			if _, dup := t.byName[r.Name]; dup {
				return nil, fmt.Errorf("duplicate route name %q", r.Name)
			}
			t.byName[r.Name] = len(t.routes)
		}
		r.segments = splitPath(r.Path)
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// Routes returns a copy of the table's routes.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match resolves path against the table.
func (t *Table) Match(rawPath string) (Location, error) {
	p := cleanPath(rawPath)
	segs := splitPath(p)

	for _, r := range t.routes {
		params, ok := matchSegments(r.segments, segs)
		if !ok {
			continue
		}
		return Location{Path: p, Name: r.Name, View: r.View, Params: params, requiresAuth: r.RequiresAuth}, nil
	}
	return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, p)
}

// PathFor builds the concrete path of a named route.
func (t *Table) PathFor(name string, params Params) (string, error) {
	idx, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	r := t.routes[idx]

	parts := make([]string, 0, len(r.segments))
	for _, seg := range r.segments {
		if !strings.HasPrefix(seg, ":") {
			parts = append(parts, seg)
			continue
		}
		v, ok := params[seg[1:]]
		if !ok || v == "" {
			return "", fmt.Errorf("route %q: missing parameter %q", name, seg[1:])
		}
		parts = append(parts, url.PathEscape(v))
	}
	return "/" + strings.Join(parts, "/"), nil
}

func matchSegments(pattern, segs []string) (Params, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	var params Params
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			v, err := url.PathUnescape(segs[i])
			if err != nil || v == "" {
				return nil, false
			}
			if params == nil {
				params = Params{}
			}
			params[p[1:]] = v
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// cleanPath drops query and fragment and any trailing slash except on the root.
func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
