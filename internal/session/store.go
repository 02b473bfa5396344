// Package session owns the bearer/refresh token pair and wraps every
// outbound API call with credential attachment and one-shot recovery
// from expired-session errors.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// Store persists the token pair. Both tokens are stored and cleared
// together, never independently.
type Store interface {
	// Load returns the stored token pair, or (nil, nil) if absent.
	Load() (*oauth2.Token, error)

	// Save persists the token pair.
	Save(tok *oauth2.Token) error

	// Clear removes the stored token pair. Idempotent.
	Clear() error
}

// FileStore persists the token pair as JSON in a single file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, nil
	}
	return &tok, nil
}

// Save implements Store.
func (s *FileStore) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	tok *oauth2.Token
}

// Load implements Store.
func (s *MemStore) Load() (*oauth2.Token, error) { return s.tok, nil }

// Save implements Store.
func (s *MemStore) Save(tok *oauth2.Token) error {
	s.tok = tok
	return nil
}

// Clear implements Store.
func (s *MemStore) Clear() error {
	s.tok = nil
	return nil
}
