package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := NewServer(opts...)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, method, target, token string, body io.Reader) (int, map[string]any, http.Header) {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, resp.Header
}

func TestServer_Login(t *testing.T) {
	s := newServer(t, WithUser("alice", "pw", "100"))

	t.Run("valid credentials", func(t *testing.T) {
		form := url.Values{"username": {"alice"}, "password": {"pw"}}
		code, body, _ := do(t, http.MethodPost, s.URL+"/token", "", strings.NewReader(form.Encode()))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "bearer", body["token_type"])
		assert.NotEmpty(t, body["access_token"])
		assert.Equal(t, "pw", s.LastRequest().Form["password"])
	})

	t.Run("wrong password", func(t *testing.T) {
		form := url.Values{"username": {"alice"}, "password": {"nope"}}
		code, body, _ := do(t, http.MethodPost, s.URL+"/token", "", strings.NewReader(form.Encode()))

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, detailInvalidLogin, body["detail"])
	})
}

func TestServer_RequiresBearer(t *testing.T) {
	s := newServer(t, WithUser("alice", "pw", "100"), WithVM(VM{ID: "100"}))

	tests := []struct {
		name  string
		token func() string
	}{
		{"missing", func() string { return "" }},
		{"garbage", func() string { return "abc123" }},
		{"expired", func() string {
			tok, err := s.IssueToken("alice", -time.Minute)
			require.NoError(t, err)
			return tok
		}},
		{"foreign secret", func() string {
			other := NewServer(WithSecret("other"))
			defer other.Close()
			tok, err := other.IssueToken("alice", time.Minute)
			require.NoError(t, err)
			return tok
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, header := do(t, http.MethodGet, s.URL+"/vms", tt.token(), nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, detailBadCredentials, body["detail"])
			assert.Equal(t, "Bearer", header.Get("WWW-Authenticate"))
		})
	}
}

func TestServer_VMAccess(t *testing.T) {
	s := newServer(t,
		WithUser("alice", "pw", "100", "200"),
		WithUser("bob", "pw"),
		WithVM(VM{ID: "100", Status: "running", MemUsed: 512, MemTotal: 1024}),
	)
	alice, err := s.IssueToken("alice", time.Minute)
	require.NoError(t, err)
	mallory, err := s.IssueToken("mallory", time.Minute)
	require.NoError(t, err)

	t.Run("status of an allowed VM", func(t *testing.T) {
		code, body, _ := do(t, http.MethodGet, s.URL+"/vms/100/status", alice, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "running", body["status"])
		assert.Equal(t, map[string]any{"used": float64(512), "total": float64(1024)}, body["memory"])
	})

	t.Run("allowed but missing VM is 404", func(t *testing.T) {
		code, body, _ := do(t, http.MethodGet, s.URL+"/vms/200/status", alice, nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "VM 200 not found", body["detail"])
	})

	t.Run("VM of another user is 403", func(t *testing.T) {
		bob, err := s.IssueToken("bob", time.Minute)
		require.NoError(t, err)
		code, body, _ := do(t, http.MethodGet, s.URL+"/vms/100/status", bob, nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, detailVMNotAllowed, body["detail"])
	})

	t.Run("unknown user cannot list", func(t *testing.T) {
		code, body, _ := do(t, http.MethodGet, s.URL+"/vms", mallory, nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, detailUserNotAllowed, body["detail"])
	})

	t.Run("actions change state", func(t *testing.T) {
		code, body, _ := do(t, http.MethodPost, s.URL+"/vms/100/shutdown", alice, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Shutdown initiated successfully", body["message"])

		vm, ok := s.VM("100")
		require.True(t, ok)
		assert.Equal(t, "stopped", vm.Status)
	})
}

func TestServer_ListFormats(t *testing.T) {
	for _, objects := range []bool{false, true} {
		opts := []Option{WithUser("alice", "pw", "2", "1"), WithVM(VM{ID: "1"}), WithVM(VM{ID: "2"})}
		if objects {
			opts = append(opts, WithVMObjects())
		}
		s := newServer(t, opts...)
		tok, err := s.IssueToken("alice", time.Minute)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, s.URL+"/vms", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		var list []json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		resp.Body.Close()

		require.Len(t, list, 2)
		if objects {
			assert.Contains(t, string(list[0]), `"vmid":"1"`)
		} else {
			assert.JSONEq(t, `"1"`, string(list[0]))
		}
	}
}
