package client

import (
	"context"
	"net/http"
	"time"

	"github.com/noah-isme/survey-api/internal/models"
)

// AuthService signs users in and out.
type AuthService struct {
	client *Client
}

// Login authenticates and stores the issued token on the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.client.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	s.store(&out)
	return &out, nil
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	if err := s.client.do(ctx, http.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	s.store(&out)
	return &out, nil
}

// Me returns the profile behind the current token.
func (s *AuthService) Me(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := s.client.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token and clears the session. The session is
// cleared even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	session := s.client.session
	defer s.client.Access.Clear()
	defer session.Clear()
	if !session.Authorized() {
		return nil
	}
	body := map[string]string{"refresh_token": session.RefreshToken()}
	return s.client.do(ctx, http.MethodPost, "/auth/logout", nil, body, nil)
}

func (s *AuthService) store(res *models.LoginResponse) {
	pair := res.TokenPair
	if pair.IssuedAt.IsZero() {
		pair.IssuedAt = time.Now()
	}
	s.client.session.Set(pair.AccessToken, pair.RefreshToken, pair.AccessExpiresAt(), res.User)
	s.client.Access.Clear()
}
