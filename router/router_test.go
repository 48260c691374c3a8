package router

import (
	"context"
	"errors"
	"testing"

	"github.com/deploymenttheory/go-vmconsole-client/mocklogger"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, store session.Store) *Router {
	t.Helper()
	table, err := NewTable(DefaultRoutes()...)
	require.NoError(t, err)
	return New(table, WithGuard(RequireCredential(store, LoginPath)))
}

func TestGuardRedirectsWithoutCredential(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore(""))

	loc, err := r.Navigate(ctx, HomePath)
	require.NoError(t, err)
	assert.Equal(t, LoginPath, loc.Path)
	assert.Equal(t, LoginView, loc.View)
}

func TestGuardAllowsAnyNonEmptyCredential(t *testing.T) {
	ctx := context.Background()
	for _, token := range []string{"abc123", "x", "not-a-jwt at all"} {
		r := newTestRouter(t, session.NewMemoryStore(token))

		loc, err := r.Navigate(ctx, HomePath)
		require.NoError(t, err)
		assert.Equal(t, HomePath, loc.Path)
		assert.Equal(t, VMListView, loc.View)
	}
}

func TestDashboardWithoutCredentialNeverRenders(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore(""))

	var rendered []View
	r.OnChange(func(to, _ Location) { rendered = append(rendered, to.View) })

	loc, err := r.Navigate(ctx, "/dashboard/7")
	require.NoError(t, err)

	assert.Equal(t, LoginPath, loc.Path)
	assert.Equal(t, LoginPath, r.Current().Path)
	assert.Equal(t, []View{LoginView}, rendered)
	assert.NotContains(t, rendered, DashboardView)
}

func TestDashboardParamsWithCredential(t *testing.T) {
	r := newTestRouter(t, session.NewMemoryStore("abc123"))

	loc, err := r.Navigate(context.Background(), "/dashboard/7?tab=cpu")
	require.NoError(t, err)
	assert.Equal(t, DashboardView, loc.View)
	assert.Equal(t, "/dashboard/7", loc.Path)
	assert.Equal(t, "7", loc.Params["vmId"])
}

func TestGuardChecksAtNavigationTimeOnly(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore("abc123")
	r := newTestRouter(t, store)

	_, err := r.Navigate(ctx, "/dashboard/7")
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, DashboardView, r.Current().View, "current view is not re-checked")

	loc, err := r.Navigate(ctx, HomePath)
	require.NoError(t, err)
	assert.Equal(t, LoginPath, loc.Path)
}

func TestLoginIsPublic(t *testing.T) {
	loc, err := newTestRouter(t, session.NewMemoryStore("")).Navigate(context.Background(), "/login/")
	require.NoError(t, err)
	assert.Equal(t, LoginView, loc.View)
	assert.False(t, loc.RequiresAuth())
}

func TestRouteNotFoundKeepsLocation(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore("abc123"))
	_, err := r.Navigate(ctx, HomePath)
	require.NoError(t, err)

	_, err = r.Navigate(ctx, "/nowhere")
	assert.True(t, errors.Is(err, ErrRouteNotFound))
	assert.Equal(t, HomePath, r.Current().Path)

	_, err = r.Navigate(ctx, "/dashboard")
	assert.True(t, errors.Is(err, ErrRouteNotFound), "the vmId segment is required")
}

func TestRedirectLoop(t *testing.T) {
	table, err := NewTable(
		Route{Name: "a", Path: "/a", View: "A"},
		Route{Name: "b", Path: "/b", View: "B"},
	)
	require.NoError(t, err)

	r := New(table, WithMaxRedirects(3))
	r.Use(func(_ context.Context, to, _ Location) (string, error) {
		if to.Path == "/a" {
			return "/b", nil
		}
		return "/a", nil
	})

	_, err = r.Navigate(context.Background(), "/a")
	assert.True(t, errors.Is(err, ErrRedirectLoop))
	assert.True(t, r.Current().IsZero())
}

func TestGuardErrorAbortsNavigation(t *testing.T) {
	r := newTestRouter(t, session.NewMemoryStore("abc123"))
	boom := errors.New("boom")
	r.Use(func(context.Context, Location, Location) (string, error) { return "", boom })

	_, err := r.Navigate(context.Background(), HomePath)
	assert.ErrorIs(t, err, boom)
}

func TestBackAndHistory(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore("abc123"))

	_, ok, err := r.Back(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Navigate(ctx, HomePath)
	require.NoError(t, err)
	_, err = r.NavigateNamed(ctx, "dashboard", Params{"vmId": "101"})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/101", r.Current().Path)

	loc, ok, err := r.Back(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, HomePath, loc.Path)
}

func TestReplaceDoesNotRecordHistory(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore("abc123"))

	_, err := r.Navigate(ctx, HomePath)
	require.NoError(t, err)
	_, err = r.Replace(ctx, "/dashboard/1")
	require.NoError(t, err)

	_, ok, err := r.Back(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveDoesNotCommit(t *testing.T) {
	r := newTestRouter(t, session.NewMemoryStore(""))

	loc, err := r.Resolve(context.Background(), "/dashboard/7")
	require.NoError(t, err)
	assert.Equal(t, LoginPath, loc.Path)
	assert.True(t, r.Current().IsZero())
}

func TestOnChangeUnsubscribe(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, session.NewMemoryStore(""))

	calls := 0
	unsubscribe := r.OnChange(func(Location, Location) { calls++ })
	_, _ = r.Navigate(ctx, LoginPath)
	unsubscribe()
	_, _ = r.Navigate(ctx, LoginPath)

	assert.Equal(t, 1, calls)
}

func TestNavigationIsLogged(t *testing.T) {
	table, err := NewTable(DefaultRoutes()...)
	require.NoError(t, err)
	log := mocklogger.NewPermissiveMockLogger()
	r := New(table, WithLogger(log), WithGuard(RequireCredential(session.NewMemoryStore(""), LoginPath)))

	_, err = r.Navigate(context.Background(), "/dashboard/7")
	require.NoError(t, err)

	log.AssertCalled(t, "Info", "Navigation redirected", mock.Anything)
}

func TestNavigateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRouter(t, session.NewMemoryStore("")).Navigate(ctx, HomePath)
	assert.ErrorIs(t, err, context.Canceled)
}
