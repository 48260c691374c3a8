// cookiejar/cookiejar.go

/* The cookiejar package gives the client a cookie jar when credentials are forwarded
(the withCredentials presets) and helpers to log cookies without leaking session values. */

package cookiejar

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/deploymenttheory/go-vmconsole-client/headers/redact"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// sensitiveCookieNames are matched case-insensitively.
var sensitiveCookieNames = map[string]bool{
	"session":      true,
	"sessionid":    true,
	"token":        true,
	"access_token": true,
}

// SetupCookieJar gives client a public-suffix aware cookie jar when enabled.
func SetupCookieJar(client *http.Client, enableCookieJar bool, log logger.Logger) error {
	if !enableCookieJar {
		return nil
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("setupCookieJar failed: %w", log.Error("Failed to create cookie jar", zap.Error(err)))
	}
	client.Jar = jar
	log.Debug("Cookie jar enabled")
	return nil
}

// RedactSensitiveCookies returns copies of cookies with session-like values redacted.
func RedactSensitiveCookies(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cp := *c
		if sensitiveCookieNames[strings.ToLower(cp.Name)] {
			cp.Value = redact.Redacted
		}
		out = append(out, &cp)
	}
	return out
}

// CookiesFromHeader parses the Set-Cookie lines of a response header.
func CookiesFromHeader(header http.Header) []*http.Cookie {
	return (&http.Response{Header: header}).Cookies()
}

// CookieNames renders cookie names for logging.
func CookieNames(cookies []*http.Cookie) string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}
