package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "chakastays/internal/domain/auth"
	domainuser "chakastays/internal/domain/user"
)

const minPasswordRunes = 8

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrUserBlocked        = errors.New("auth: user blocked")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email      string
	Name       string
	Password   string
	WantToHost bool
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User    *domainuser.User
	Token   string
	Expires time.Time
}

// Register creates a guest account, with the host role when asked, and signs
// it in. Emails are unique after normalization.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	roles := []domainuser.Role{domainuser.RoleGuest}
	if params.WantToHost {
		roles = append(roles, domainuser.RoleHost)
	}
	user, err := s.newAccount(ctx, params.Email, params.Name, params.Password, roles)
	if err != nil {
		return nil, err
	}
	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logInfo("user registered", "user_id", user.ID, "host", params.WantToHost)
	return result, nil
}

// Login checks the password and opens a new session. Unknown emails and bad
// passwords both report ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.Users.ByEmail(ctx, domainuser.NormalizeEmail(params.Email))
	switch {
	case errors.Is(err, domainuser.ErrNotFound), errors.Is(err, domainuser.ErrEmailRequired):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logInfo("user signed in", "user_id", user.ID)
	return result, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// Resolve loads the user behind token. Expired sessions and blocked users are rejected.
func (s *Service) Resolve(ctx context.Context, token string) (*domainuser.User, *domainauth.Session, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, domainauth.ErrTokenRequired
	}
	sess, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, nil, err
	}
	if err := sess.Check(s.now()); err != nil {
		s.dropSession(ctx, sess.Token)
		return nil, nil, err
	}
	user, err := s.Users.ByID(ctx, sess.UserID)
	if err != nil {
		s.dropSession(ctx, sess.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, nil, domainauth.ErrSessionNotFound
		}
		return nil, nil, err
	}
	if user.Blocked {
		if err := s.Sessions.DeleteByUser(ctx, user.ID); err != nil && s.Logger != nil {
			s.Logger.Warn("drop sessions of blocked user failed", "user_id", user.ID, "error", err)
		}
		return nil, nil, ErrUserBlocked
	}
	return user, sess, nil
}

// EnsureAdmin creates the bootstrap administrator, or grants the role to an
// existing account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	existing, err := s.Users.ByEmail(ctx, domainuser.NormalizeEmail(email))
	if err == nil {
		if existing.IsAdmin() {
			return existing, nil
		}
		if err := existing.EnsureRole(domainuser.RoleAdmin, s.now()); err != nil {
			return nil, err
		}
		return existing, s.Users.Save(ctx, existing)
	}
	if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	admin, err := s.newAccount(ctx, email, name, password, []domainuser.Role{domainuser.RoleGuest, domainuser.RoleAdmin})
	if err != nil {
		return nil, err
	}
	s.logInfo("admin account created", "user_id", admin.ID)
	return admin, nil
}

// newAccount hashes password and stores a fresh user. The email must be free.
func (s *Service) newAccount(ctx context.Context, email, name, password string, roles []domainuser.Role) (*domainuser.User, error) {
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return nil, ErrPasswordTooShort
	}
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	_, err := s.Users.ByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domainuser.ErrEmailAlreadyUsed
	case !errors.Is(err, domainuser.ErrNotFound):
		return nil, err
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	return user, s.Users.Save(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (*AuthResult, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	sess, err := domainauth.Issue(domainauth.Token(token), user, s.sessionTTL(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, Expires: sess.ExpiresAt}, nil
}

func (s *Service) dropSession(ctx context.Context, token domainauth.Token) {
	if err := s.Sessions.Delete(ctx, token); err != nil && s.Logger != nil {
		s.Logger.Warn("drop stale session failed", "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Info(msg, args...)
	}
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
