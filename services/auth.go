package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/models"
)

// CredentialStore is the part of the user store the auth gate needs.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthGate authenticates logins and validates sessions. It keeps no per-session state of its own;
// logouts are recorded in the revocation list.
type AuthGate struct {
	users   CredentialStore
	tokens  *TokenIssuer
	revoked RevocationList
	log     *zap.Logger
}

// NewAuthGate wires an AuthGate.
func NewAuthGate(users CredentialStore, tokens *TokenIssuer, revoked RevocationList, log *zap.Logger) *AuthGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthGate{users: users, tokens: tokens, revoked: revoked, log: log}
}

// Login verifies the credentials and issues a session.
func (a *AuthGate) Login(ctx context.Context, username, password string) (*Session, string, error) {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	return a.tokens.Issue(user.ID, user.Username)
}

// RequireSession returns the session carried by token, or ErrUnauthenticated.
func (a *AuthGate) RequireSession(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := a.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	revoked, err := a.revoked.IsRevoked(ctx, sess.ID)
	if err != nil {
		// fail closed: a session we cannot check is not a session
		a.log.Warn("revocation lookup failed", zap.String("session", sess.ID), zap.Error(err))
		return nil, ErrUnauthenticated
	}
	if revoked {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// Logout invalidates the session; later RequireSession calls with its token fail.
func (a *AuthGate) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return a.revoked.Revoke(ctx, sess.ID, sess.ExpiresAt)
}
