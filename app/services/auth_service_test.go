package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcmoto/motoportal/pkg/crypt"
	"github.com/vmcmoto/motoportal/pkg/session"
	"github.com/vmcmoto/motoportal/pkg/storage"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

func newAuth(t *testing.T) (*AuthService, *session.Manager, *testkit.FakeBackend) {
	t.Helper()
	repo, fb := newCatalog(t)
	disk, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	box, err := crypt.New("test-key")
	require.NoError(t, err)
	sessions := session.NewManager(session.NewFileStore(disk, "session", box))
	return NewAuthService(repo, sessions), sessions, fb
}

func TestAuth_LoginStartsSession(t *testing.T) {
	svc, sessions, fb := newAuth(t)
	ctx := context.Background()

	st, err := svc.Login(ctx, fb.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, st.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), st.ExpiresAt, time.Minute)

	require.NoError(t, sessions.Require(ctx))
	tok, err := sessions.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.Token, tok)
}

func TestAuth_WrongPassword(t *testing.T) {
	svc, sessions, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "guess")
	testkit.AssertStatusError(t, err, http.StatusUnauthorized)
	assert.False(t, sessions.Authenticated(ctx))
}

func TestAuth_EmptyPasswordIsNotSent(t *testing.T) {
	svc, _, fb := newAuth(t)

	_, err := svc.Login(context.Background(), "")
	testkit.AssertValidationFields(t, err, "password")
	assert.Zero(t, fb.Calls("auth.login"))
}

func TestAuth_Logout(t *testing.T) {
	svc, sessions, fb := newAuth(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, fb.Password)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	assert.ErrorIs(t, sessions.Require(ctx), session.ErrNoSession)
	require.NoError(t, svc.Logout(ctx), "logging out twice is fine")
}
