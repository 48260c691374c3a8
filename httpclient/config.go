// httpclient/config.go
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultLogLevelString        = "LogLevelInfo"
	DefaultLogOutputFormatString = logger.LogOutputConsole
	DefaultLogConsoleSeparator   = "	"
	DefaultAccept                = "application/json"
	DefaultMaxRedirects          = 5
)

// UnauthorizedHandler runs once per 401 response, after the credential has been cleared and
// before the failed result reaches the caller.
type UnauthorizedHandler func(ctx context.Context, req *http.Request)

// ClientConfig is the configuration of the client factory. The zero value plus BaseURL is a
// usable config once SetDefaultValuesClientConfig has run.
type ClientConfig struct {
	BaseURL string        `json:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout" validate:"min=0"` // 0 means no client timeout

	// Headers
	Accept      string `json:"accept"`
	ContentType string `json:"content_type"` // Default Content-Type when a request does not set one

	// Cookies are forwarded (a cookie jar is attached) when set.
	WithCredentials bool `json:"with_credentials"`

	// Redirects
	FollowRedirects bool `json:"follow_redirects"`
	MaxRedirects    int  `json:"max_redirects" validate:"min=0"`

	// MaxConcurrentRequests bounds in-flight requests; 0 leaves them independent and unbounded.
	MaxConcurrentRequests int `json:"max_concurrent_requests" validate:"min=0"`

	ProxyURL string `json:"proxy_url" validate:"omitempty,url"`

	// Log
	HideSensitiveData   bool   `json:"hide_sensitive_data"`
	LogLevel            string `json:"log_level"`
	LogOutputFormat     string `json:"log_output_format" validate:"omitempty,oneof=json console"`
	LogConsoleSeparator string `json:"log_console_separator"`
	LogExportPath       string `json:"log_export_path"`

	OnUnauthorized UnauthorizedHandler `json:"-"`
}

var validate = validator.New()

// SetDefaultValuesClientConfig fills unset fields with their defaults.
func SetDefaultValuesClientConfig(config *ClientConfig) {
	if config.Accept == "" {
		config.Accept = DefaultAccept
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevelString
	}
	if config.LogOutputFormat == "" {
		config.LogOutputFormat = DefaultLogOutputFormatString
	}
	if config.LogConsoleSeparator == "" {
		config.LogConsoleSeparator = DefaultLogConsoleSeparator
	}
	if config.FollowRedirects && config.MaxRedirects == 0 {
		config.MaxRedirects = DefaultMaxRedirects
	}
}

// validateClientConfig checks config after defaults have been applied.
func validateClientConfig(config ClientConfig) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
		}
		return err
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https, got %q", u.Scheme)
	}

	if config.LogLevel != "" && !isValidLogLevel(config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.FollowRedirects && config.MaxRedirects < 1 {
		return errors.New("max redirects cannot be less than 1")
	}

	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range logger.ValidLogLevels {
		if l == level {
			return true
		}
	}
	return false
}
