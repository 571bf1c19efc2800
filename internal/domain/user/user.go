// Package user holds accounts. Every account can book; host and admin are
// extra grants on top of the guest role.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// roleOrder is the canonical order roles are stored and reported in.
var roleOrder = [...]Role{RoleGuest, RoleHost, RoleAdmin}

// ParseRole accepts any casing and surrounding space.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range roleOrder {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

type User struct {
	ID           ID
	Email        string
	Name         string
	AvatarURL    string
	PasswordHash string
	Roles        []Role
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// NewUser validates params. The guest role is always granted.
func NewUser(params CreateParams) (*User, error) {
	u := &User{
		ID:           ID(strings.TrimSpace(string(params.ID))),
		Email:        NormalizeEmail(params.Email),
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: params.PasswordHash,
	}
	switch {
	case u.ID == "":
		return nil, ErrIDRequired
	case u.Email == "":
		return nil, ErrEmailRequired
	case strings.TrimSpace(u.PasswordHash) == "":
		return nil, ErrPasswordHashMissing
	case u.Name == "":
		return nil, ErrNameRequired
	}
	roles, err := canonicalRoles(append([]Role{RoleGuest}, params.Roles...))
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	u.CreatedAt = params.CreatedAt.UTC()
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

// UpdateProfile replaces the display name and avatar; an empty avatar clears it.
func (u *User) UpdateProfile(name, avatarURL string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	u.Name, u.AvatarURL = name, strings.TrimSpace(avatarURL)
	u.UpdatedAt = now.UTC()
	return nil
}

// EnsureRole grants role; granting a held role is a no-op.
func (u *User) EnsureRole(role Role, now time.Time) error {
	parsed, err := ParseRole(string(role))
	if err != nil {
		return err
	}
	if u.HasRole(parsed) {
		return nil
	}
	roles, _ := canonicalRoles(append(append([]Role(nil), u.Roles...), parsed))
	u.Roles = roles
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *User) HasRole(role Role) bool {
	parsed, err := ParseRole(string(role))
	if err != nil || u == nil {
		return false
	}
	for _, held := range u.Roles {
		if held == parsed {
			return true
		}
	}
	return false
}

func (u *User) IsHost() bool  { return u.HasRole(RoleHost) }
func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// Block stops the account from signing in; open sessions are dropped on
// their next use.
func (u *User) Block(now time.Time) {
	u.Blocked = true
	u.UpdatedAt = now.UTC()
}

func (u *User) Unblock(now time.Time) {
	u.Blocked = false
	u.UpdatedAt = now.UTC()
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]Role(nil), u.Roles...)
	return &out
}

// canonicalRoles parses, dedupes and orders roles.
func canonicalRoles(roles []Role) ([]Role, error) {
	held := make(map[Role]bool, len(roles))
	for _, r := range roles {
		parsed, err := ParseRole(string(r))
		if err != nil {
			return nil, err
		}
		held[parsed] = true
	}
	out := make([]Role, 0, len(held))
	for _, r := range roleOrder {
		if held[r] {
			out = append(out, r)
		}
	}
	return out, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
