package services

import (
	"context"
	"fmt"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/session"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// Authenticator exchanges the admin password for a token.
type Authenticator interface {
	Login(ctx context.Context, password string) (models.Token, error)
}

// AuthService logs the admin in and out.
type AuthService struct {
	backend  Authenticator
	sessions *session.Manager
}

func NewAuthService(backend Authenticator, sessions *session.Manager) *AuthService {
	return &AuthService{backend: backend, sessions: sessions}
}

// Login validates the password, asks the backend for a token and starts a
// session with it.
func (s *AuthService) Login(ctx context.Context, password string) (session.State, error) {
	if err := validate.Check(models.LoginRequest{Password: password}); err != nil {
		return session.State{}, err
	}
	tok, err := s.backend.Login(ctx, password)
	if err != nil {
		return session.State{}, fmt.Errorf("services: login: %w", err)
	}
	return s.sessions.Start(ctx, tok.AccessToken, tok.ExpiresIn)
}

// Logout ends the session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}
