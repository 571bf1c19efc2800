package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chakastays/internal/app/dataservice"
	domainauth "chakastays/internal/domain/auth"
	domainuser "chakastays/internal/domain/user"
)

// UserRepository keeps accounts plus a unique index on normalized email.
type UserRepository struct {
	mu       sync.RWMutex
	accounts map[domainuser.ID]*domainuser.User
	emails   map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		accounts: map[domainuser.ID]*domainuser.User{},
		emails:   map[string]domainuser.ID{},
	}
}

func (r *UserRepository) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *UserRepository) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.emails[domainuser.NormalizeEmail(email)])
}

func (r *UserRepository) lookup(id domainuser.ID) (*domainuser.User, error) {
	u, ok := r.accounts[id]
	if !ok {
		return nil, dataservice.NotFound(domainuser.ErrNotFound)
	}
	return u.Clone(), nil
}

// Save inserts or replaces u. Changing the email moves the index entry.
func (r *UserRepository) Save(_ context.Context, u *domainuser.User) error {
	if u == nil || u.ID == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(u.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.emails[email]; taken && owner != u.ID {
		return fmt.Errorf("%w: %w", dataservice.ErrConflict, domainuser.ErrEmailAlreadyUsed)
	}
	if prev, ok := r.accounts[u.ID]; ok {
		delete(r.emails, domainuser.NormalizeEmail(prev.Email))
	}
	r.emails[email] = u.ID
	r.accounts[u.ID] = u.Clone()
	return nil
}

// SessionStore keeps bearer sessions by value. Expired entries are dropped
// when they are read.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[domainauth.Token]domainauth.Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[domainauth.Token]domainauth.Session{}, now: time.Now}
}

func (s *SessionStore) Save(_ context.Context, sess *domainauth.Session) error {
	if sess == nil || sess.Token == "" {
		return domainauth.ErrTokenRequired
	}
	stored := *sess
	stored.Roles = append([]domainuser.Role(nil), sess.Roles...)

	s.mu.Lock()
	s.sessions[sess.Token] = stored
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(_ context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if err := stored.Check(s.now()); err != nil {
		delete(s.sessions, token)
		return nil, err
	}
	stored.Roles = append([]domainuser.Role(nil), stored.Roles...)
	return &stored, nil
}

func (s *SessionStore) Delete(_ context.Context, token domainauth.Token) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// DeleteByUser signs userID out everywhere.
func (s *SessionStore) DeleteByUser(_ context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

var (
	_ domainuser.Repository   = (*UserRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
