package favorites

import (
	"context"
	"strings"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainfavorites "chakastays/internal/domain/favorites"
	domainproperties "chakastays/internal/domain/properties"
)

const (
	ListFavoritesKey  = "me.favorites.list"
	AddFavoriteKey    = "me.favorites.add"
	RemoveFavoriteKey = "me.favorites.remove"
)

type ListFavoritesQuery struct {
	Who session.Principal
}

func (q ListFavoritesQuery) Key() string { return ListFavoritesKey }

func (q ListFavoritesQuery) Caller() session.Principal { return q.Who }

type AddFavoriteCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
}

func (c AddFavoriteCommand) Key() string { return AddFavoriteKey }

func (c AddFavoriteCommand) Caller() session.Principal { return c.Who }

type RemoveFavoriteCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
}

func (c RemoveFavoriteCommand) Key() string { return RemoveFavoriteKey }

func (c RemoveFavoriteCommand) Caller() session.Principal { return c.Who }

type ListFavoritesHandler struct {
	support.Gateway
}

func (h *ListFavoritesHandler) Handle(ctx context.Context, q ListFavoritesQuery) (dto.FavoriteCollection, error) {
	items, err := remote.Call(ctx, h.Remote, "favorites.by_user", func(ctx context.Context) ([]domainfavorites.Favorite, error) {
		return h.Data.Favorites().ByUser(ctx, q.Who.UserID)
	})
	if err != nil {
		return dto.FavoriteCollection{}, err
	}
	domainfavorites.SortNewestFirst(items)
	out := dto.FavoriteCollection{Items: make([]dto.Favorite, 0, len(items))}
	for _, fav := range items {
		p, err := h.Property(ctx, fav.PropertyID)
		if err != nil && !support.IsNotFound(err) {
			return dto.FavoriteCollection{}, err
		}
		out.Items = append(out.Items, dto.MapFavorite(fav, p))
	}
	return out, nil
}

// AddFavoriteHandler is idempotent: adding an existing pair keeps its original timestamp.
type AddFavoriteHandler struct {
	support.Gateway
}

func (h *AddFavoriteHandler) Handle(ctx context.Context, cmd AddFavoriteCommand) (struct{}, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	if _, err := h.Property(ctx, id); err != nil {
		return struct{}{}, err
	}
	fav, err := domainfavorites.New(cmd.Who.UserID, id, h.Clock())
	if err != nil {
		return struct{}{}, support.Invalid(err)
	}
	return struct{}{}, remote.Do(ctx, h.Remote, "favorites.add", func(ctx context.Context) error {
		return h.Data.Favorites().Add(ctx, fav)
	})
}

type RemoveFavoriteHandler struct {
	support.Gateway
}

func (h *RemoveFavoriteHandler) Handle(ctx context.Context, cmd RemoveFavoriteCommand) (struct{}, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	return struct{}{}, remote.Do(ctx, h.Remote, "favorites.remove", func(ctx context.Context) error {
		return h.Data.Favorites().Remove(ctx, cmd.Who.UserID, id)
	})
}

var _ queries.Handler[ListFavoritesQuery, dto.FavoriteCollection] = (*ListFavoritesHandler)(nil)
var _ commands.Handler[AddFavoriteCommand, struct{}] = (*AddFavoriteHandler)(nil)
var _ commands.Handler[RemoveFavoriteCommand, struct{}] = (*RemoveFavoriteHandler)(nil)
