package dto

import (
	"time"

	domainfavorites "chakastays/internal/domain/favorites"
	domainproperties "chakastays/internal/domain/properties"
	domainuser "chakastays/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type Favorite struct {
	Property  PropertySummary `json:"property"`
	CreatedAt time.Time       `json:"created_at"`
}

type FavoriteCollection struct {
	Items []Favorite `json:"items"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, token string, expires time.Time) AuthResponse {
	return AuthResponse{
		User:      MapUserProfile(user),
		Token:     token,
		ExpiresAt: expires,
	}
}

// MapFavorite keeps favorites whose property has since been removed, with only the id filled in.
func MapFavorite(f domainfavorites.Favorite, p *domainproperties.Property) Favorite {
	summary := PropertySummary{ID: string(f.PropertyID)}
	if p != nil {
		summary = MapPropertySummary(p)
	}
	return Favorite{Property: summary, CreatedAt: f.CreatedAt}
}
