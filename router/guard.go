package router

import (
	"context"

	"github.com/deploymenttheory/go-vmconsole-client/session"
)

// Guard runs before a navigation completes. It returns the path to redirect to, or "" to
// allow the navigation.
type Guard func(ctx context.Context, to, from Location) (redirect string, err error)

// RequireCredential denies protected routes when store holds no credential and redirects
// to loginPath. A missing or unreadable credential is a redirect, never an error.
func RequireCredential(store session.Store, loginPath string) Guard {
	return func(ctx context.Context, to, _ Location) (string, error) {
		if !to.RequiresAuth() {
			return "", nil
		}
		if session.HasCredential(ctx, store) {
			return "", nil
		}
		return loginPath, nil
	}
}
