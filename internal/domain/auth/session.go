// Package auth models opaque bearer sessions handed out on register/login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chakastays/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
	// ErrSessionExpired matches ErrSessionNotFound under errors.Is; callers
	// that do not care about the difference keep a single check.
	ErrSessionExpired = fmt.Errorf("%w: expired", ErrSessionNotFound)
)

// Token is the opaque value clients send as "Authorization: Bearer <token>".
type Token string

// Session binds a token to one account. Roles hold the grants at issue time
// and are informational; authorization always re-reads the account.
type Session struct {
	Token     Token
	UserID    user.ID
	Roles     []user.Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Issue opens a session for u that lasts ttl from now.
func Issue(token Token, u *user.User, ttl time.Duration, now time.Time) (*Session, error) {
	raw := strings.TrimSpace(string(token))
	switch {
	case raw == "":
		return nil, ErrTokenRequired
	case u == nil || strings.TrimSpace(string(u.ID)) == "":
		return nil, ErrUserRequired
	case ttl <= 0:
		return nil, ErrTTLInvalid
	}
	issued := now.UTC()
	return &Session{
		Token:     Token(raw),
		UserID:    u.ID,
		Roles:     append([]user.Role(nil), u.Roles...),
		CreatedAt: issued,
		ExpiresAt: issued.Add(ttl),
	}, nil
}

// Check reports ErrSessionExpired once at reaches ExpiresAt.
func (s *Session) Check(at time.Time) error {
	if at.UTC().Before(s.ExpiresAt) {
		return nil
	}
	return fmt.Errorf("%w at %s", ErrSessionExpired, s.ExpiresAt.Format(time.RFC3339))
}

// Remaining is the lifetime left at the given instant, never negative.
func (s *Session) Remaining(at time.Time) time.Duration {
	if left := s.ExpiresAt.Sub(at.UTC()); left > 0 {
		return left
	}
	return 0
}

// SessionStore persists sessions. Get returns ErrSessionNotFound for unknown
// or expired tokens.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
