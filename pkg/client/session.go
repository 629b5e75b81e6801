package client

import (
	"sync"
	"time"
)

// Session holds the bearer token and its expiry. Once the expiry passes the
// session clears itself, which logs the user out.
type Session struct {
	mu        sync.RWMutex
	token     string
	refresh   string
	expiresAt time.Time
	user      UserInfo
	now       func() time.Time
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Set stores a freshly issued token.
func (s *Session) Set(token, refresh string, expiresAt time.Time, user UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.refresh = refresh
	s.expiresAt = expiresAt
	s.user = user
}

// Authorized reports whether a non-expired token is held.
func (s *Session) Authorized() bool {
	_, ok := s.Token()
	return ok
}

// Token returns the bearer token if it has not expired.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	token, expiresAt := s.token, s.expiresAt
	s.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if !expiresAt.IsZero() && !s.now().Before(expiresAt) {
		s.Clear()
		return "", false
	}
	return token, true
}

// RefreshToken returns the stored refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// User returns the signed in user, or the zero value when logged out.
func (s *Session) User() UserInfo {
	if !s.Authorized() {
		return UserInfo{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// ExpiresAt returns the token expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear drops the token.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.refresh = ""
	s.expiresAt = time.Time{}
	s.user = UserInfo{}
}
