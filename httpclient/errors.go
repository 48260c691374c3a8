package httpclient

import (
	"errors"

	"github.com/deploymenttheory/go-vmconsole-client/response"
)

// ErrUnauthorized wraps every 401 result. The credential has already been cleared and the
// unauthorized handler has already run when a caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

// IsUnauthorized reports whether err is the result of a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// AsAPIError extracts the APIError carried by err, if any.
func AsAPIError(err error) (*response.APIError, bool) {
	var apiErr *response.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
