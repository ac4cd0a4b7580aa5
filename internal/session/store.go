package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/restora-app/restora/internal/shared"
	"golang.org/x/oauth2"
)

// Store persists the single access token the client holds, one string in one
// file. It is the only process-wide mutable session state: Guard is the sole
// writer and the request layer reads it through [oauth2.TokenSource].
type Store struct {
	path string

	mu    sync.RWMutex
	token string
}

var _ oauth2.TokenSource = (*Store)(nil)

// NewStore creates a token store backed by the file at path. The file is not
// read until [Store.Load] is called.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted token from disk into memory. A missing file is not
// an error; it means no one is logged in.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// Save persists the token to disk and memory atomically with respect to
// readers: a reader sees either the prior token or the new one, never a blank
// intermediate.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted token from disk and memory. Clearing an already
// empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Current returns the in-memory token without touching disk.
func (s *Store) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Token implements [oauth2.TokenSource] for the shared request layer. It
// returns [shared.ErrNotAuthenticated] when no token is held so callers can
// distinguish "send unauthenticated" from a real failure.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}
