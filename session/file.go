package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	retryDelay = 50 * time.Millisecond

	dirPerm  = 0o700
	filePerm = 0o600
)

var _ Store = (*FileStore)(nil)

// credentialFile is the on-disk layout: a flat key/value object, like browser local storage.
type credentialFile struct {
	Values map[string]string `json:"values"`
}

func (c *credentialFile) init() {
	if c.Values == nil {
		c.Values = map[string]string{}
	}
}

// FileStore persists the credential as JSON so separate CLI invocations share it.
// Every access takes a flock on a sibling lock file; writes are atomic (temp file + rename).
type FileStore struct {
	filePath string
	lockPath string
}

// NewFileStore creates a FileStore backed by path. The lock file is path + ".lock".
func NewFileStore(path string) *FileStore {
	return &FileStore{filePath: path, lockPath: path + ".lock"}
}

// DefaultPath returns the per-user credential file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "vmconsole", "credentials.json"), nil
}

// Path returns the credential file location.
func (s *FileStore) Path() string { return s.filePath }

func (s *FileStore) Get(ctx context.Context) (string, error) {
	var token string
	err := s.with(ctx, func(data *credentialFile) (bool, error) {
		token = data.Values[TokenKey]
		return false, nil
	})
	return token, err
}

func (s *FileStore) Set(ctx context.Context, token string) error {
	return s.with(ctx, func(data *credentialFile) (bool, error) {
		if token == "" {
			delete(data.Values, TokenKey)
		} else {
			data.Values[TokenKey] = token
		}
		return true, nil
	})
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.with(ctx, func(data *credentialFile) (bool, error) {
		if _, ok := data.Values[TokenKey]; !ok {
			return false, nil
		}
		delete(data.Values, TokenKey)
		return true, nil
	})
}

// with loads the file under the lock and writes it back when fn reports a change.
func (s *FileStore) with(ctx context.Context, fn func(*credentialFile) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), dirPerm); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrStoreLocked, s.lockPath, ctx.Err())
		}
		return fmt.Errorf("acquire flock %s: %w", s.lockPath, err)
	}
	defer fl.Unlock() //nolint:errcheck

	var data credentialFile
	raw, err := os.ReadFile(s.filePath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("read %s: %w", s.filePath, err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse %s: %w", s.filePath, err)
		}
	}
	data.init()

	changed, err := fn(&data)
	if err != nil || !changed {
		return err
	}
	return atomicWriteJSON(s.filePath, &data)
}
