// Package tokenstore persists the durable credential bundle for the Lynk & Co
// cloud client. The bundle is a flat key/value JSON document holding the
// refresh token and the CCC service token; unrelated keys already present in
// the file are preserved across updates.
package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Well-known bundle keys.
const (
	// RefreshTokenKey stores the OAuth refresh token.
	RefreshTokenKey = "refresh_token"
	// CCCTokenKey stores the CCC service token for the vehicle API.
	CCCTokenKey = "ccc_token"
)

// bundleFileName is the credential bundle file under the auth directory.
const bundleFileName = "lynkco.tokens.json"

// FileStore is the single owner of the durable credential bundle. All writes
// go through a whole-bundle read-merge-write cycle guarded by a mutex, so
// concurrent finalizing login attempts cannot interleave and lose updates.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore rooted at the given auth directory.
func NewFileStore(authDir string) *FileStore {
	return &FileStore{path: filepath.Join(authDir, bundleFileName)}
}

// Path returns the bundle file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential bundle from disk. A missing file yields an empty
// mapping, not an error.
func (s *FileStore) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	bundle := make(map[string]string)
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		bundle[key.String()] = value.String()
		return true
	})
	return bundle, nil
}

// Put merges the given keys into the stored bundle and persists the whole
// document. Keys already present in the file but absent from values are left
// untouched. The write is atomic: the merged document is written to a
// temporary file and renamed into place.
func (s *FileStore) Put(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readLocked()
	if err != nil {
		return err
	}

	for key, value := range values {
		raw, err = sjson.SetBytes(raw, key, value)
		if err != nil {
			return fmt.Errorf("failed to merge bundle key %q: %w", key, err)
		}
	}

	return s.writeLocked(raw)
}

func (s *FileStore) readLocked() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("failed to read credential bundle: %w", err)
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("credential bundle %s is not valid JSON", s.path)
	}
	return raw, nil
}

func (s *FileStore) writeLocked(raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credential bundle: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace credential bundle: %w", err)
	}
	return nil
}
