package session

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "chakastays/internal/domain/auth"
	"chakastays/internal/domain/user"
)

type fakeResolver struct {
	user *user.User
	err  error
}

func (f fakeResolver) Resolve(ctx context.Context, token string) (*user.User, *domainauth.Session, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, &domainauth.Session{Token: domainauth.Token(token), UserID: f.user.ID, ExpiresAt: time.Unix(100, 0)}, nil
}

func TestResolveLifecycle(t *testing.T) {
	u := &user.User{ID: "u1", Email: "a@b.c", Roles: []user.Role{user.RoleHost}}
	s, err := Resolve(context.Background(), fakeResolver{user: u}, "tok")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !s.Authenticated() || s.UserID() != "u1" || !s.HasRole(user.RoleHost) {
		t.Fatalf("unexpected session state")
	}
	actor, err := s.Actor()
	if err != nil || actor.UserID != "u1" {
		t.Fatalf("unexpected actor %+v (%v)", actor, err)
	}
	s.Clear()
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("expected cleared session")
	}
	if _, err := s.Actor(); !errors.Is(err, ErrAnonymous) {
		t.Fatalf("expected ErrAnonymous after clear, got %v", err)
	}
}

func TestResolveWithoutToken(t *testing.T) {
	s, err := Resolve(context.Background(), fakeResolver{}, "")
	if err != nil || s.Authenticated() {
		t.Fatalf("expected anonymous session")
	}
}

func TestResolveFailureIsAnonymous(t *testing.T) {
	boom := errors.New("expired")
	s, err := Resolve(context.Background(), fakeResolver{err: boom}, "tok")
	if !errors.Is(err, boom) || s.Authenticated() {
		t.Fatalf("expected anonymous session and error, got %v", err)
	}
}

func TestSessionCopiesUser(t *testing.T) {
	u := &user.User{ID: "u1", Roles: []user.Role{user.RoleGuest}}
	s, _ := Resolve(context.Background(), fakeResolver{user: u}, "tok")
	got := s.User()
	got.Roles[0] = user.RoleAdmin
	if s.HasRole(user.RoleAdmin) {
		t.Fatalf("session must hand out copies")
	}
}

func TestPrincipalSnapshot(t *testing.T) {
	u := &user.User{ID: "u1", Roles: []user.Role{user.RoleGuest, user.RoleAdmin}}
	s, _ := Resolve(context.Background(), fakeResolver{user: u}, "tok")
	p := s.Principal()
	s.Clear()
	if !p.Authenticated() || !p.HasRole(user.RoleAdmin) || p.Actor().UserID != "u1" {
		t.Fatalf("principal must outlive the session it came from: %+v", p)
	}
	if Anonymous().Principal().Authenticated() {
		t.Fatalf("anonymous principal must not be authenticated")
	}
}
