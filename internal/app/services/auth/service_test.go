package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainauth "chakastays/internal/domain/auth"
	domainuser "chakastays/internal/domain/user"
)

type fakeUsers struct {
	byID map[domainuser.ID]*domainuser.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[domainuser.ID]*domainuser.User{}}
}

func (f *fakeUsers) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	if u, ok := f.byID[id]; ok {
		return u.Clone(), nil
	}
	return nil, domainuser.ErrNotFound
}

func (f *fakeUsers) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, domainuser.ErrNotFound
}

func (f *fakeUsers) Save(ctx context.Context, u *domainuser.User) error {
	f.byID[u.ID] = u.Clone()
	return nil
}

type fakeSessions struct {
	items map[domainauth.Token]*domainauth.Session
}

func (f *fakeSessions) Save(ctx context.Context, s *domainauth.Session) error {
	f.items[s.Token] = s
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	if s, ok := f.items[token]; ok {
		return s, nil
	}
	return nil, domainauth.ErrSessionNotFound
}

func (f *fakeSessions) Delete(ctx context.Context, token domainauth.Token) error {
	delete(f.items, token)
	return nil
}

func (f *fakeSessions) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	for token, s := range f.items {
		if s.UserID == userID {
			delete(f.items, token)
		}
	}
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "h:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct{ n int }

func (g *seqTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

func newService(now time.Time) (*Service, *fakeUsers, *fakeSessions) {
	users := newFakeUsers()
	sessions := &fakeSessions{items: map[domainauth.Token]*domainauth.Session{}}
	clock := now
	return &Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		SessionTTL: time.Hour,
		Now:        func() time.Time { return clock },
	}, users, sessions
}

func TestRegisterLoginResolveLogout(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _, sessions := newService(now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "Host@Example.com", Name: "Host", Password: "longpassword", WantToHost: true})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !reg.User.HasRole(domainuser.RoleHost) || !reg.Expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected registration result %+v", reg)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "host@example.com", Name: "Again", Password: "longpassword"}); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}

	login, err := svc.Login(ctx, LoginParams{Email: "host@example.com", Password: "longpassword"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	u, _, err := svc.Resolve(ctx, login.Token)
	if err != nil || u.ID != reg.User.ID {
		t.Fatalf("Resolve returned %v, %v", u, err)
	}
	if err := svc.Logout(ctx, login.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, ok := sessions.items[domainauth.Token(login.Token)]; ok {
		t.Fatalf("expected session removed on logout")
	}
	if _, _, err := svc.Resolve(ctx, login.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _, _ := newService(time.Now())
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterParams{Email: "g@example.com", Name: "G", Password: "longpassword"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "g@example.com", Password: "wrongpassword"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "x@example.com", Name: "X", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestResolveRejectsExpiredAndBlocked(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, users, _ := newService(now)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, RegisterParams{Email: "g@example.com", Name: "G", Password: "longpassword"})

	later := now.Add(2 * time.Hour)
	svc.Now = func() time.Time { return later }
	if _, _, err := svc.Resolve(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected expired session rejected, got %v", err)
	}

	login, _ := svc.Login(ctx, LoginParams{Email: "g@example.com", Password: "longpassword"})
	stored := users.byID[reg.User.ID]
	stored.Block(later)
	if _, _, err := svc.Resolve(ctx, login.Token); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, _, _ := newService(time.Now())
	ctx := context.Background()
	admin, err := svc.EnsureAdmin(ctx, "admin@example.com", "", "adminpassword")
	if err != nil || !admin.IsAdmin() {
		t.Fatalf("EnsureAdmin returned %v, %v", admin, err)
	}
	again, err := svc.EnsureAdmin(ctx, "admin@example.com", "", "adminpassword")
	if err != nil || again.ID != admin.ID {
		t.Fatalf("EnsureAdmin must be idempotent, got %v, %v", again, err)
	}
}
