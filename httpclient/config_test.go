package httpclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultValuesClientConfig(t *testing.T) {
	config := ClientConfig{BaseURL: "http://localhost:8000", FollowRedirects: true}
	SetDefaultValuesClientConfig(&config)

	assert.Equal(t, DefaultAccept, config.Accept)
	assert.Equal(t, DefaultLogLevelString, config.LogLevel)
	assert.Equal(t, logger.LogOutputConsole, config.LogOutputFormat)
	assert.Equal(t, DefaultMaxRedirects, config.MaxRedirects)
	assert.Zero(t, config.Timeout, "no timeout unless configured")
	assert.Zero(t, config.MaxConcurrentRequests, "requests are unbounded by default")
}

func TestValidateClientConfig(t *testing.T) {
	valid := func() ClientConfig {
		c := ClientConfig{BaseURL: "http://localhost:8000"}
		SetDefaultValuesClientConfig(&c)
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr bool
	}{
		{"valid", func(*ClientConfig) {}, false},
		{"missing base URL", func(c *ClientConfig) { c.BaseURL = "" }, true},
		{"relative base URL", func(c *ClientConfig) { c.BaseURL = "localhost:8000" }, true},
		{"unsupported scheme", func(c *ClientConfig) { c.BaseURL = "ftp://localhost" }, true},
		{"negative timeout", func(c *ClientConfig) { c.Timeout = -time.Second }, true},
		{"negative concurrency", func(c *ClientConfig) { c.MaxConcurrentRequests = -1 }, true},
		{"bad log format", func(c *ClientConfig) { c.LogOutputFormat = "pretty" }, true},
		{"bad log level", func(c *ClientConfig) { c.LogLevel = "verbose" }, true},
		{"bad proxy", func(c *ClientConfig) { c.ProxyURL = "::" }, true},
		{"redirects without limit", func(c *ClientConfig) { c.FollowRedirects = true; c.MaxRedirects = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := validateClientConfig(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildClientRequiresStore(t *testing.T) {
	_, err := BuildClient(ClientConfig{BaseURL: "http://localhost:8000"}, nil, WithLogger(logger.NewNopLogger()))
	assert.Error(t, err)
}

func TestBuildClientWiring(t *testing.T) {
	client, err := BuildClient(ClientConfig{
		BaseURL:               "http://127.0.0.1:8000/",
		Timeout:               10 * time.Second,
		WithCredentials:       true,
		MaxConcurrentRequests: 4,
	}, session.NewMemoryStore(""), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", client.BaseURL().String())
	assert.Equal(t, 10*time.Second, client.HTTPClient().Timeout)
	assert.NotNil(t, client.HTTPClient().Jar)
	assert.Equal(t, 4, client.Concurrency.Limit())
	assert.NotNil(t, client.Store())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmconsole.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"base_url": "http://127.0.0.1:8000",
		"timeout": "10s",
		"with_credentials": true,
		"hide_sensitive_data": true,
		"log_level": "LogLevelDebug"
	}`), 0o600))

	config, err := LoadConfigFromFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", config.BaseURL)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.True(t, config.WithCredentials)
	assert.True(t, config.HideSensitiveData)
	assert.Equal(t, "LogLevelDebug", config.LogLevel)
	assert.Equal(t, DefaultAccept, config.Accept)
}

func TestLoadConfigFromFileOverlaysBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmconsole.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"base_url":"http://file:8000"}`), 0o600))

	base, err := PresetConfig(PresetGeneric)
	require.NoError(t, err)

	config, err := LoadConfigFromFile(path, &base)
	require.NoError(t, err)
	assert.Equal(t, "http://file:8000", config.BaseURL)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.True(t, config.WithCredentials)
	assert.Equal(t, "http://127.0.0.1:8000", base.BaseURL, "base is not modified")
}

func TestLoadConfigFromFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("base_url: x"), 0o600))
	_, err := LoadConfigFromFile(yamlPath, nil)
	assert.ErrorContains(t, err, "expected .json")

	badTimeout := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badTimeout, []byte(`{"timeout":"soon"}`), 0o600))
	_, err = LoadConfigFromFile(badTimeout, nil)
	assert.ErrorContains(t, err, "invalid timeout")

	_, err = LoadConfigFromFile(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("VMCONSOLE_BASE_URL", "http://vmhost:8000")
	t.Setenv("VMCONSOLE_TIMEOUT", "3s")
	t.Setenv("VMCONSOLE_WITH_CREDENTIALS", "true")
	t.Setenv("VMCONSOLE_MAX_CONCURRENT_REQUESTS", "8")

	config, err := LoadConfigFromEnv(&ClientConfig{BaseURL: "http://localhost:8000", Accept: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "http://vmhost:8000", config.BaseURL)
	assert.Equal(t, 3*time.Second, config.Timeout)
	assert.True(t, config.WithCredentials)
	assert.Equal(t, 8, config.MaxConcurrentRequests)
	assert.Equal(t, "text/plain", config.Accept, "unset variables keep the existing value")
}

func TestLoadConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("VMCONSOLE_FOLLOW_REDIRECTS", "sometimes")
	_, err := LoadConfigFromEnv(nil)
	assert.ErrorContains(t, err, "VMCONSOLE_FOLLOW_REDIRECTS")
}
