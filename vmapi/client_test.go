package vmapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/apitest"
	"github.com/deploymenttheory/go-vmconsole-client/httpclient"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *apitest.Server
	store   *session.MemoryStore
	router  *router.Router
	client  *Client
}

func newFixture(t *testing.T, opts ...apitest.Option) *fixture {
	t.Helper()
	backend := apitest.NewServer(opts...)
	t.Cleanup(backend.Close)
	return newFixtureFor(t, backend.URL, backend)
}

func newFixtureFor(t *testing.T, baseURL string, backend *apitest.Server) *fixture {
	t.Helper()
	store := session.NewMemoryStore("")

	table, err := router.NewTable(router.DefaultRoutes()...)
	require.NoError(t, err)
	r := router.New(table, router.WithGuard(router.RequireCredential(store, router.LoginPath)))

	api, err := httpclient.NewPresetClient(httpclient.PresetVM, store, r, func(c *httpclient.ClientConfig) {
		c.BaseURL = baseURL
	}, httpclient.WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	return &fixture{
		backend: backend,
		store:   store,
		router:  r,
		client:  New(api, store, WithNavigator(r)),
	}
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, err := f.store.Get(context.Background())
	require.NoError(t, err)
	return tok
}

func TestLoginStoresAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "alice", r.PostFormValue("username"))
		assert.Equal(t, "pw", r.PostFormValue("password"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok1"}`))
	}))
	t.Cleanup(srv.Close)
	f := newFixtureFor(t, srv.URL, nil)

	token, err := f.client.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.Equal(t, "tok1", token.AccessToken)
	assert.Equal(t, "tok1", f.token(t))
}

func TestLoginWithEmptyTokenStoresNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"","token_type":"bearer"}`))
	}))
	t.Cleanup(srv.Close)
	f := newFixtureFor(t, srv.URL, nil)
	require.NoError(t, f.store.Set(context.Background(), "previous"))

	_, err := f.client.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "previous", f.token(t))
}

func TestLoginAgainstBackend(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw", "100"), apitest.WithVM(apitest.VM{ID: "100"}))
	ctx := context.Background()

	token, err := f.client.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, token.AccessToken, f.token(t))

	claims, err := session.Inspect(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	form := f.backend.Requests()[0].Form
	assert.Equal(t, map[string]string{"username": "alice", "password": "pw"}, form)
	assert.Empty(t, f.backend.Requests()[0].Authorization)
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw"))

	_, err := f.client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, httpclient.IsUnauthorized(err))
	apiErr, ok := httpclient.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid username or password", apiErr.Detail)
	assert.Empty(t, f.token(t))
	assert.Equal(t, router.LoginPath, f.router.Current().Path)
}

func TestStatusCarriesStoredBearer(t *testing.T) {
	f := newFixture(t,
		apitest.WithUser("alice", "pw", "42"),
		apitest.WithVM(apitest.VM{ID: "42", Status: "running", CPU: 12.5, MemUsed: 1 << 30, MemTotal: 4 << 30, Uptime: 3600}),
	)
	ctx := context.Background()
	tok, err := f.backend.IssueToken("alice", time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, tok))

	status, err := f.client.GetVMStatus(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+tok, f.backend.LastRequest().Authorization)
	assert.Equal(t, "/vms/42/status", f.backend.LastRequest().Path)
	assert.True(t, status.Running())
	assert.Equal(t, 12.5, status.CPU)
	assert.Equal(t, int64(4<<30), status.Memory.Total)
	assert.InDelta(t, 25.0, status.Memory.Percent(), 0.001)
	assert.Equal(t, time.Hour, status.UptimeDuration())
	assert.Equal(t, "vm-42", status.Name)
}

func TestUnauthorizedEvictsAndNavigatesToLogin(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw", "42"), apitest.WithVM(apitest.VM{ID: "42"}))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "abc123"))
	_, err := f.router.Navigate(ctx, "/dashboard/42")
	require.NoError(t, err)
	require.Equal(t, router.DashboardView, f.router.Current().View)

	var navigations []string
	f.router.OnChange(func(to, _ router.Location) { navigations = append(navigations, to.Path) })

	_, err = f.client.ListVMs(ctx)
	require.Error(t, err)

	assert.True(t, httpclient.IsUnauthorized(err))
	assert.Empty(t, f.token(t))
	assert.Equal(t, router.LoginPath, f.router.Current().Path)
	assert.Equal(t, []string{router.LoginPath}, navigations)
}

func TestForbiddenAndNotFoundAreOrdinaryErrors(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw", "1"), apitest.WithVM(apitest.VM{ID: "2"}))
	ctx := context.Background()
	tok, err := f.backend.IssueToken("alice", time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, tok))

	tests := []struct {
		id     string
		code   int
		detail string
	}{
		{"2", http.StatusForbidden, "Not authorized to access this VM"},
		{"1", http.StatusNotFound, "VM 1 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := f.client.GetVMStatus(ctx, tt.id)
			require.Error(t, err)
			assert.False(t, httpclient.IsUnauthorized(err))

			apiErr, ok := httpclient.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, tok, f.token(t), "credential is kept")
		})
	}
}

func TestListVMs(t *testing.T) {
	for _, objects := range []bool{false, true} {
		opts := []apitest.Option{
			apitest.WithUser("alice", "pw", "100", "101"),
			apitest.WithVM(apitest.VM{ID: "100", Name: "web", Status: "running", MemUsed: 1, MemTotal: 2}),
			apitest.WithVM(apitest.VM{ID: "101", Name: "db"}),
		}
		if objects {
			opts = append(opts, apitest.WithVMObjects())
		}
		f := newFixture(t, opts...)
		ctx := context.Background()
		_, err := f.client.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		vms, err := f.client.ListVMs(ctx)
		require.NoError(t, err)
		require.Len(t, vms, 2)
		assert.Equal(t, "100", vms[0].ID)
		assert.Equal(t, "101", vms[1].ID)
		if objects {
			assert.Equal(t, "web", vms[0].Name)
			require.NotNil(t, vms[0].Memory)
			assert.Equal(t, int64(2), vms[0].Memory.Total)
		} else {
			assert.Empty(t, vms[0].Name)
			assert.Nil(t, vms[0].Memory)
		}
	}
}

func TestLifecycleActions(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw", "7"), apitest.WithVM(apitest.VM{ID: "7"}))
	ctx := context.Background()
	_, err := f.client.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	steps := []struct {
		call    func(context.Context, string) (ActionResult, error)
		message string
		status  string
	}{
		{f.client.StartVM, "Start initiated successfully", "running"},
		{f.client.ResetVM, "Reset initiated successfully", "running"},
		{f.client.ShutdownVM, "Shutdown initiated successfully", "stopped"},
		{f.client.StopVM, "Stop initiated successfully", "stopped"},
	}
	for _, step := range steps {
		result, err := step.call(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, step.message, result.Message)
		assert.Equal(t, http.MethodPost, f.backend.LastRequest().Method)

		vm, _ := f.backend.VM("7")
		assert.Equal(t, step.status, vm.Status)
	}
}

func TestVMOperationsRejectEmptyID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.GetVMStatus(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyVMID)
	_, err = f.client.StartVM(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyVMID)
	_, err = f.client.Do(ctx, "1", Action("pause"))
	assert.Error(t, err)
	assert.Empty(t, f.backend.Requests())
}

func TestPingAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "API is working", msg)

	require.NoError(t, f.store.Set(ctx, "abc123"))
	_, err = f.router.Navigate(ctx, router.HomePath)
	require.NoError(t, err)

	require.NoError(t, f.client.Logout(ctx))
	assert.Empty(t, f.token(t))
	assert.Equal(t, router.LoginPath, f.router.Current().Path)
}

type failingStore struct{ session.Store }

func (failingStore) Set(context.Context, string) error { return errors.New("disk full") }

func TestLoginStoreFailure(t *testing.T) {
	f := newFixture(t, apitest.WithUser("alice", "pw"))
	client := New(f.client.api, failingStore{f.store})

	_, err := client.Login(context.Background(), "alice", "pw")
	assert.ErrorContains(t, err, "disk full")
}
