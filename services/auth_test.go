package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestGate(t *testing.T, revoked RevocationList) (*AuthGate, *UserService, *TokenIssuer) {
	t.Helper()
	users := newTestUsers(t)
	tokens := NewTokenIssuer(testSecret, time.Hour)
	return NewAuthGate(users, tokens, revoked, nil), users, tokens
}

func TestLoginScenario(t *testing.T) {
	gate, users, _ := newTestGate(t, NewMemoryRevocationList())
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	sess, token, err := gate.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)

	got, err := gate.RequireSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.UserID, got.UserID)

	_, _, err = gate.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = gate.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestWrongPasswordsNeverLogIn(t *testing.T) {
	gate, users, _ := newTestGate(t, NewMemoryRevocationList())
	ctx := context.Background()

	faker := gofakeit.New(42)
	username := faker.Username()
	password := faker.Password(true, true, true, false, false, 12)
	_, err := users.Register(ctx, username, password)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		guess := faker.Password(true, true, true, true, false, 12)
		if guess == password {
			continue
		}
		_, _, err := gate.Login(ctx, username, guess)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "guess %q", guess)
	}

	_, _, err = gate.Login(ctx, username, password)
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	_, rdb := newTestRedis(t)

	backends := map[string]RevocationList{
		"memory": NewMemoryRevocationList(),
		"redis":  NewRedisRevocationList(rdb),
	}

	for name, revoked := range backends {
		t.Run(name, func(t *testing.T) {
			gate, users, _ := newTestGate(t, revoked)
			ctx := context.Background()

			_, err := users.Register(ctx, "alice", "secret1")
			require.NoError(t, err)

			sess, token, err := gate.Login(ctx, "alice", "secret1")
			require.NoError(t, err)

			require.NoError(t, gate.Logout(ctx, sess))

			_, err = gate.RequireSession(ctx, token)
			assert.ErrorIs(t, err, ErrUnauthenticated)

			// a fresh login is unaffected
			_, token2, err := gate.Login(ctx, "alice", "secret1")
			require.NoError(t, err)
			_, err = gate.RequireSession(ctx, token2)
			assert.NoError(t, err)
		})
	}
}

func TestRequireSessionRejectsBadTokens(t *testing.T) {
	gate, users, tokens := newTestGate(t, NewMemoryRevocationList())
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	_, token, err := gate.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = gate.RequireSession(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = gate.RequireSession(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, forged, err := NewTokenIssuer("other-secret", time.Hour).Issue(1, "alice")
	require.NoError(t, err)
	_, err = gate.RequireSession(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = gate.RequireSession(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated, "expired")
}

type brokenRevocationList struct{}

func (brokenRevocationList) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis down")
}

func (brokenRevocationList) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRequireSessionFailsClosed(t *testing.T) {
	gate, users, _ := newTestGate(t, brokenRevocationList{})
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	sess, token, err := gate.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = gate.RequireSession(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Error(t, gate.Logout(ctx, sess))
}

func TestMemoryRevocationListForgetsExpired(t *testing.T) {
	list := NewMemoryRevocationList()
	ctx := context.Background()
	now := time.Now()
	list.now = func() time.Time { return now }

	require.NoError(t, list.Revoke(ctx, "a", now.Add(time.Minute)))
	revoked, err := list.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)
}
