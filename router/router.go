package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"go.uber.org/zap"
)

const (
	defaultMaxRedirects = 10
	defaultHistoryLimit = 50
)

// Listener is notified after every completed navigation.
type Listener func(to, from Location)

// Router resolves paths through the route table and its guards and tracks the current
// location. It is safe for concurrent use; listeners run outside the lock.
type Router struct {
	table        *Table
	log          logger.Logger
	maxRedirects int
	historyLimit int

	mu        sync.Mutex
	guards    []Guard
	current   Location
	history   []Location
	listeners map[int]Listener
	nextID    int
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for navigation events.
func WithLogger(log logger.Logger) Option {
	return func(r *Router) { r.log = log }
}

// WithMaxRedirects bounds how many guard redirects one navigation may follow.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithGuard registers a guard at construction time.
func WithGuard(g Guard) Option {
	return func(r *Router) { r.guards = append(r.guards, g) }
}

// New creates a Router over table.
func New(table *Table, opts ...Option) *Router {
	r := &Router{
		table:        table,
		log:          logger.NewNopLogger(),
		maxRedirects: defaultMaxRedirects,
		historyLimit: defaultHistoryLimit,
		listeners:    map[int]Listener{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use appends a guard. Guards run in registration order; the first redirect wins.
func (r *Router) Use(g Guard) {
	r.mu.Lock()
	r.guards = append(r.guards, g)
	r.mu.Unlock()
}

// OnChange registers a listener and returns a function that removes it.
func (r *Router) OnChange(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Current returns the current location. It is zero before the first navigation.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Table returns the route table.
func (r *Router) Table() *Table { return r.table }

// Resolve runs path through the table and the guards without committing the navigation.
func (r *Router) Resolve(ctx context.Context, path string) (Location, error) {
	r.mu.Lock()
	from := r.current
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()

	return r.resolve(ctx, path, from, guards)
}

// Navigate resolves path and, on success, makes it the current location. On error the
// current location is unchanged.
func (r *Router) Navigate(ctx context.Context, path string) (Location, error) {
	return r.navigate(ctx, path, true)
}

// NavigateNamed navigates to a named route with params.
func (r *Router) NavigateNamed(ctx context.Context, name string, params Params) (Location, error) {
	path, err := r.table.PathFor(name, params)
	if err != nil {
		return Location{}, err
	}
	return r.Navigate(ctx, path)
}

// Replace navigates without recording the current location in history.
func (r *Router) Replace(ctx context.Context, path string) (Location, error) {
	return r.navigate(ctx, path, false)
}

// Back returns to the previous location, re-running guards. It reports false when there
// is no history.
func (r *Router) Back(ctx context.Context) (Location, bool, error) {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return Location{}, false, nil
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()

	loc, err := r.navigate(ctx, prev.Path, false)
	return loc, err == nil, err
}

func (r *Router) navigate(ctx context.Context, path string, push bool) (Location, error) {
	r.mu.Lock()
	from := r.current
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()

	to, err := r.resolve(ctx, path, from, guards)
	if err != nil {
		r.log.Warn("Navigation failed",
			zap.String("from", from.Path),
			zap.String("requested", path),
			zap.Error(err),
			zap.String("component", "router"),
		)
		return Location{}, err
	}

	r.mu.Lock()
	if push && !from.IsZero() && from.Path != to.Path {
		r.history = append(r.history, from)
		if len(r.history) > r.historyLimit {
			r.history = r.history[len(r.history)-r.historyLimit:]
		}
	}
	r.current = to
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	logger.LogNavigation(r.log, from.Path, cleanPath(path), to.Path, string(to.View))
	for _, l := range listeners {
		l(to, from)
	}
	return to, nil
}

func (r *Router) resolve(ctx context.Context, path string, from Location, guards []Guard) (Location, error) {
	target := path
	for hop := 0; hop <= r.maxRedirects; hop++ {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}
		to, err := r.table.Match(target)
		if err != nil {
			return Location{}, err
		}

		redirect, err := runGuards(ctx, guards, to, from)
		if err != nil {
			return Location{}, fmt.Errorf("navigation guard for %s: %w", to.Path, err)
		}
		if redirect == "" || cleanPath(redirect) == to.Path {
			return to, nil
		}
		target = redirect
	}
	return Location{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

func runGuards(ctx context.Context, guards []Guard, to, from Location) (string, error) {
	for _, g := range guards {
		redirect, err := g(ctx, to, from)
		if err != nil || redirect != "" {
			return redirect, err
		}
	}
	return "", nil
}
