// Package session keeps the admin's access token between CLI runs.
//
// Usage:
//
//	mgr := session.NewManager(session.NewFileStore(disk, ".motoadmin/session", box))
//	mgr.Start(ctx, token.AccessToken, token.ExpiresIn)
//	if err := mgr.Require(ctx); err != nil { ... }
//	tok, _ := mgr.Token(ctx) // satisfies repositories.TokenSource
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vmcmoto/motoportal/pkg/logger"
)

var (
	// ErrNoSession is returned by a Store holding no session.
	ErrNoSession = errors.New("session: not logged in")

	// ErrExpired is returned by Require once the token has expired.
	ErrExpired = errors.New("session: expired, log in again")
)

// State is one admin session.
type State struct {
	Token     string    `json:"token"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"` // zero means no known expiry
}

// Expired reports whether the session is past its expiry at now.
func (s State) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists a State.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
	Clear(ctx context.Context) error
}

// Guard gates admin commands.
type Guard interface {
	Require(ctx context.Context) error
}

// Manager owns the current session.
type Manager struct {
	store Store
	now   func() time.Time

	mu      sync.Mutex
	current *State
	loaded  bool
}

// NewManager returns a Manager persisting through store. Nothing is read
// until the first call that needs the session.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Start stores a new session for token. The expiry comes from the token's
// exp claim when it is a JWT carrying one, otherwise from expiresIn seconds.
// The claim is read without verifying the signature; only the backend holds
// the key.
func (m *Manager) Start(ctx context.Context, token string, expiresIn int64) (State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return State{}, errors.New("session: empty token")
	}
	now := m.now()
	st := State{Token: token, StartedAt: now, ExpiresAt: expiry(token, expiresIn, now)}

	if err := m.store.Save(ctx, st); err != nil {
		return State{}, fmt.Errorf("session: save: %w", err)
	}
	m.mu.Lock()
	m.current, m.loaded = &st, true
	m.mu.Unlock()

	logger.WithCtx(ctx).Info("session started", "op", "auth.login", "expires_at", st.ExpiresAt)
	return st, nil
}

// Current returns the stored session, if any. Expired sessions are returned
// too; use Authenticated to check validity.
func (m *Manager) Current(ctx context.Context) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		st, err := m.store.Load(ctx)
		switch {
		case err == nil:
			m.current = &st
		case !errors.Is(err, ErrNoSession):
			logger.WithCtx(ctx).Warn("session: unreadable, ignoring", "error", err)
		}
		m.loaded = true
	}
	if m.current == nil {
		return State{}, false
	}
	return *m.current, true
}

// Clear ends the session.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.current, m.loaded = nil, true
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	logger.WithCtx(ctx).Info("session cleared", "op", "auth.logout")
	return nil
}

// Authenticated reports whether an unexpired session exists.
func (m *Manager) Authenticated(ctx context.Context) bool {
	return m.Require(ctx) == nil
}

// Require returns ErrNoSession or ErrExpired when admin calls cannot be made.
func (m *Manager) Require(ctx context.Context) error {
	st, ok := m.Current(ctx)
	if !ok {
		return ErrNoSession
	}
	if st.Expired(m.now()) {
		return ErrExpired
	}
	return nil
}

// Token returns the bearer token of a valid session, or "" when there is
// none.
func (m *Manager) Token(ctx context.Context) (string, error) {
	st, ok := m.Current(ctx)
	if !ok || st.Expired(m.now()) {
		return "", nil
	}
	return st.Token, nil
}

func expiry(token string, expiresIn int64, now time.Time) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}
