package client

import (
	"context"
	"errors"
	"sync"

	"github.com/cppla/blogd/models"
)

// Session holds the token and user of the signed-in account and mirrors them
// into its Storage.
type Session struct {
	mu      sync.RWMutex
	storage Storage
	token   string
	user    *models.User
}

// NewSession creates a Session persisted through storage.
func NewSession(storage Storage) *Session {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Session{storage: storage}
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set stores a new token and user.
func (s *Session) Set(token string, user *models.User) error {
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return s.storage.Save(SessionData{Token: token, User: user})
}

// SetUser replaces the cached user, keeping the token.
func (s *Session) SetUser(user *models.User) error {
	s.mu.Lock()
	s.user = user
	token := s.token
	s.mu.Unlock()
	return s.storage.Save(SessionData{Token: token, User: user})
}

// Clear forgets the session in memory and in storage.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return s.storage.Clear()
}

// Restore loads a stored session and validates it against /auth/me. A token
// the server rejects with 401 is cleared; other failures keep it for a retry.
func (s *Session) Restore(ctx context.Context, c *Client) (bool, error) {
	data, err := s.storage.Load()
	if err != nil {
		return false, err
	}
	if data == nil || data.Token == "" {
		return false, nil
	}

	s.mu.Lock()
	s.token, s.user = data.Token, data.User
	s.mu.Unlock()

	user, err := c.Me(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			return false, s.Clear()
		}
		return false, err
	}
	return true, s.SetUser(user)
}
