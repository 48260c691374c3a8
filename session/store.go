// Package session holds the console credential: a single opaque bearer token stored under
// a fixed key. It is set by login, read before every request and cleared on 401 or logout.
package session

import (
	"context"
	"errors"
)

// TokenKey is the key the credential is persisted under.
const TokenKey = "token"

// ErrStoreLocked is returned when the credential file lock cannot be taken before the
// context ends.
var ErrStoreLocked = errors.New("credential store is locked")

// Store is a replace-or-clear cell for the credential. Get returns "" when no credential
// is stored; that is not an error. Clear on an empty store is a no-op.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// HasCredential reports whether a non-empty credential is stored. Read errors count as
// "no credential".
func HasCredential(ctx context.Context, s Store) bool {
	token, err := s.Get(ctx)
	return err == nil && token != ""
}
