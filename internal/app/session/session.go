// Package session holds the identity of the current caller as an explicit value.
// A Session is resolved from a bearer token when a request starts and cleared on logout.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"chakastays/internal/app/dataservice"
	domainauth "chakastays/internal/domain/auth"
	"chakastays/internal/domain/user"
)

var ErrAnonymous = errors.New("session: authentication required")

// Resolver turns a token into the user it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*user.User, *domainauth.Session, error)
}

type Session struct {
	mu        sync.RWMutex
	token     string
	user      *user.User
	expiresAt time.Time
}

// Anonymous returns a session with no identity.
func Anonymous() *Session {
	return &Session{}
}

// Resolve builds the session for token. An empty token yields an anonymous session.
func Resolve(ctx context.Context, r Resolver, token string) (*Session, error) {
	if token == "" || r == nil {
		return Anonymous(), nil
	}
	u, s, err := r.Resolve(ctx, token)
	if err != nil {
		return Anonymous(), err
	}
	out := &Session{token: token, user: u.Clone()}
	if s != nil {
		out.expiresAt = s.ExpiresAt
	}
	return out, nil
}

func (s *Session) Authenticated() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the session's user, or nil when anonymous.
func (s *Session) User() *user.User {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return string(s.user.ID)
}

func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// HasRole is a local check for presentation. Guarded operations re-check on the service side.
func (s *Session) HasRole(role user.Role) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.HasRole(role)
}

// Actor returns the identity to pass to guarded operations.
func (s *Session) Actor() (dataservice.Actor, error) {
	id := s.UserID()
	if id == "" {
		return dataservice.Actor{}, ErrAnonymous
	}
	return dataservice.Actor{UserID: id}, nil
}

// Clear drops the identity. Subsequent calls behave as anonymous.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.expiresAt = time.Time{}
}

// Principal is an immutable snapshot of the caller carried by commands and queries.
type Principal struct {
	UserID string
	Roles  []user.Role
}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

func (p Principal) HasRole(role user.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) Actor() dataservice.Actor {
	return dataservice.Actor{UserID: p.UserID}
}

// Principal snapshots the current identity.
func (s *Session) Principal() Principal {
	if s == nil {
		return Principal{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Principal{}
	}
	return Principal{UserID: string(s.user.ID), Roles: append([]user.Role(nil), s.user.Roles...)}
}
