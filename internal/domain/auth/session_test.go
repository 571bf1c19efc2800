package auth

import (
	"errors"
	"testing"
	"time"

	"chakastays/internal/domain/user"
)

func TestIssueValidatesInput(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	u := &user.User{ID: "u1", Roles: []user.Role{user.RoleGuest}}

	if _, err := Issue(" ", u, time.Hour, now); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
	if _, err := Issue("tok", nil, time.Hour, now); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := Issue("tok", u, 0, now); !errors.Is(err, ErrTTLInvalid) {
		t.Fatalf("expected ErrTTLInvalid, got %v", err)
	}

	sess, err := Issue(" tok ", u, time.Hour, now)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if sess.Token != "tok" || !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected session %+v", sess)
	}
	u.Roles[0] = user.RoleAdmin
	if sess.Roles[0] != user.RoleGuest {
		t.Fatalf("session roles must not alias the account")
	}
}

func TestCheckAndRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess, _ := Issue("tok", &user.User{ID: "u1"}, time.Hour, now)

	if err := sess.Check(now.Add(59 * time.Minute)); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}
	if got := sess.Remaining(now.Add(45 * time.Minute)); got != 15*time.Minute {
		t.Fatalf("expected 15m remaining, got %s", got)
	}
	err := sess.Check(now.Add(time.Hour))
	if !errors.Is(err, ErrSessionExpired) || !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry to match both sentinels, got %v", err)
	}
	if got := sess.Remaining(now.Add(2 * time.Hour)); got != 0 {
		t.Fatalf("expected zero remaining, got %s", got)
	}
}
