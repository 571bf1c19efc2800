package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/dto"
	authsvc "chakastays/internal/app/services/auth"
	domainuser "chakastays/internal/domain/user"
)

var errAuthUnavailable = errors.New("auth service unavailable")

// AuthHandler serves /auth. Account storage goes straight to the auth
// service; none of these calls ride the command bus.
type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	WantToHost bool   `json:"want_to_host"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams(req))
	h.reply(c, http.StatusCreated, result, err)
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams(req))
	h.reply(c, http.StatusOK, result, err)
}

// Logout is idempotent: a missing or unknown token still answers 204.
func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errAuthUnavailable)
		return
	}
	sess := currentSession(c)
	token := sess.Token()
	if token == "" {
		token = extractBearerToken(c.GetHeader("Authorization"))
	}
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	sess.Clear()
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	if u := currentSession(c).User(); u != nil {
		c.JSON(http.StatusOK, dto.MapUserProfile(u))
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
}

func (h AuthHandler) bind(c *gin.Context, req any) bool {
	if h.Service == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errAuthUnavailable)
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func (h AuthHandler) reply(c *gin.Context, status int, result *authsvc.AuthResult, err error) {
	if err == nil {
		c.JSON(status, dto.NewAuthResponse(result.User, result.Token, result.Expires))
		return
	}
	code, known := authStatus(err)
	if !known {
		handleError(c, h.Logger, err)
		return
	}
	if code == http.StatusUnauthorized {
		// Blocked accounts look like bad credentials from outside.
		err = authsvc.ErrInvalidCredentials
	}
	respondWithError(c, h.Logger, code, err)
}

func authStatus(err error) (int, bool) {
	table := []struct {
		target error
		status int
	}{
		{authsvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{authsvc.ErrUserBlocked, http.StatusUnauthorized},
		{authsvc.ErrPasswordTooShort, http.StatusBadRequest},
		{domainuser.ErrEmailRequired, http.StatusBadRequest},
		{domainuser.ErrNameRequired, http.StatusBadRequest},
		{domainuser.ErrEmailAlreadyUsed, http.StatusConflict},
	}
	for _, row := range table {
		if errors.Is(err, row.target) {
			return row.status, true
		}
	}
	return 0, false
}
