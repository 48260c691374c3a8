// httpclient/config_load.go
// Description: functions to load configuration values from a JSON file or environment variables.
package httpclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ConfigFileExtension = ".json"

	// EnvPrefix prefixes every environment variable read by LoadConfigFromEnv.
	EnvPrefix = "VMCONSOLE_"
)

// LoadConfigFromFile overlays the settings of a JSON file on base (a nil base starts
// empty). Fields the file leaves out keep their base value. Durations are written as
// strings ("10s").
func LoadConfigFromFile(path string, base *ClientConfig) (*ClientConfig, error) {
	absPath, err := validateFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}

	var file struct {
		ClientConfig
		Timeout string `json:"timeout"`
	}
	if base != nil {
		file.ClientConfig = *base
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("could not unmarshal JSON: %w", err)
	}

	config := file.ClientConfig
	if file.Timeout != "" {
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", file.Timeout, err)
		}
		config.Timeout = d
	}

	SetDefaultValuesClientConfig(&config)
	return &config, nil
}

// LoadConfigFromEnv overlays VMCONSOLE_* environment variables on config (a nil config
// starts empty). Unparseable values are reported rather than silently ignored.
func LoadConfigFromEnv(config *ClientConfig) (*ClientConfig, error) {
	if config == nil {
		config = &ClientConfig{}
	}

	config.BaseURL = getEnvOrDefault("BASE_URL", config.BaseURL)
	config.Accept = getEnvOrDefault("ACCEPT", config.Accept)
	config.ContentType = getEnvOrDefault("CONTENT_TYPE", config.ContentType)
	config.ProxyURL = getEnvOrDefault("PROXY_URL", config.ProxyURL)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	config.LogOutputFormat = getEnvOrDefault("LOG_OUTPUT_FORMAT", config.LogOutputFormat)
	config.LogConsoleSeparator = getEnvOrDefault("LOG_CONSOLE_SEPARATOR", config.LogConsoleSeparator)
	config.LogExportPath = getEnvOrDefault("LOG_EXPORT_PATH", config.LogExportPath)

	var err error
	if config.Timeout, err = envDuration("TIMEOUT", config.Timeout); err != nil {
		return nil, err
	}
	if config.WithCredentials, err = envBool("WITH_CREDENTIALS", config.WithCredentials); err != nil {
		return nil, err
	}
	if config.FollowRedirects, err = envBool("FOLLOW_REDIRECTS", config.FollowRedirects); err != nil {
		return nil, err
	}
	if config.HideSensitiveData, err = envBool("HIDE_SENSITIVE_DATA", config.HideSensitiveData); err != nil {
		return nil, err
	}
	if config.MaxRedirects, err = envInt("MAX_REDIRECTS", config.MaxRedirects); err != nil {
		return nil, err
	}
	if config.MaxConcurrentRequests, err = envInt("MAX_CONCURRENT_REQUESTS", config.MaxConcurrentRequests); err != nil {
		return nil, err
	}

	SetDefaultValuesClientConfig(config)
	return config, nil
}

func validateFilePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	absPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		return "", fmt.Errorf("unable to resolve the absolute path of the configuration file: %s, error: %w", path, err)
	}

	if strings.Contains(absPath, "..") {
		return "", fmt.Errorf("invalid path, path traversal patterns detected: %s", path)
	}

	if filepath.Ext(absPath) != ConfigFileExtension {
		return "", fmt.Errorf("invalid file extension for configuration file: %s, expected .json", path)
	}

	return absPath, nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return value
	}
	return defaultValue
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return d, nil
}
