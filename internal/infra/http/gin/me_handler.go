package ginserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	bookingapp "chakastays/internal/app/handlers/booking"
	favoritesapp "chakastays/internal/app/handlers/favorites"
	meapp "chakastays/internal/app/handlers/me"
	notificationsapp "chakastays/internal/app/handlers/notifications"
	"chakastays/internal/app/queries"
)

type MeHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type profileRequest struct {
	Name string `json:"name"`
}

func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListGuestBookingsQuery{Who: user})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) ListNotifications(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[notificationsapp.ListNotificationsQuery, dto.NotificationFeed](c.Request.Context(), h.Queries, notificationsapp.ListNotificationsQuery{Who: user})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) MarkNotificationRead(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := notificationsapp.MarkReadCommand{Who: user, NotificationID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[notificationsapp.MarkReadCommand, *dto.MarkReadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	result, err := commands.Dispatch[notificationsapp.MarkAllReadCommand, *dto.NotificationFeed](c.Request.Context(), h.Commands, notificationsapp.MarkAllReadCommand{Who: user})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) ListFavorites(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[favoritesapp.ListFavoritesQuery, dto.FavoriteCollection](c.Request.Context(), h.Queries, favoritesapp.ListFavoritesQuery{Who: user})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) AddFavorite(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := favoritesapp.AddFavoriteCommand{Who: user, PropertyID: strings.TrimSpace(c.Param("propertyID"))}
	if _, err := commands.Dispatch[favoritesapp.AddFavoriteCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MeHandler) RemoveFavorite(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := favoritesapp.RemoveFavoriteCommand{Who: user, PropertyID: strings.TrimSpace(c.Param("propertyID"))}
	if _, err := commands.Dispatch[favoritesapp.RemoveFavoriteCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MeHandler) UpdateProfile(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := meapp.UpdateProfileCommand{Who: user, Name: strings.TrimSpace(req.Name)}
	result, err := commands.Dispatch[meapp.UpdateProfileCommand, *dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) UploadAvatar(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	upload, status, err := readImageUpload(c)
	if err != nil {
		respondWithError(c, h.Logger, status, err)
		return
	}
	cmd := meapp.UploadAvatarCommand{
		Who:         user,
		ObjectKey:   buildObjectKey("avatars", user.UserID, upload),
		ContentType: upload.ContentType,
		Reader:      bytes.NewReader(upload.Data),
	}
	result, err := commands.Dispatch[meapp.UploadAvatarCommand, *dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = MeHandler{}
