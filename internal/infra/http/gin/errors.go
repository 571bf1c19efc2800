package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/commands"
	"chakastays/internal/app/middleware"
	"chakastays/internal/app/queries"
)

// statusFor maps application error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusUnprocessableEntity
	case apperr.IsAuthorization(err):
		return http.StatusForbidden
	case apperr.IsTimeout(err):
		return http.StatusGatewayTimeout
	case apperr.IsRemote(err):
		switch apperr.RemoteCode(err) {
		case apperr.CodeConflict, apperr.CodeBanned:
			return http.StatusConflict
		case apperr.CodeNotFound:
			return http.StatusNotFound
		default:
			return http.StatusBadGateway
		}
	case errors.Is(err, middleware.ErrKeyReused):
		return http.StatusUnprocessableEntity
	case errors.Is(err, commands.ErrHandlerNotFound), errors.Is(err, queries.ErrHandlerNotFound):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	switch {
	case apperr.IsValidation(err):
		body.Reason = apperr.ValidationReason(err)
	case apperr.IsRemote(err):
		body.Code = apperr.RemoteCode(err)
	}
	if status >= http.StatusInternalServerError {
		// Internal details stay in the log.
		body.Error = http.StatusText(status)
	}
	logFailure(c, logger, status, err)
	c.JSON(status, body)
}

func respondWithError(c *gin.Context, logger *slog.Logger, status int, err error) {
	logFailure(c, logger, status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func logFailure(c *gin.Context, logger *slog.Logger, status int, err error) {
	if logger == nil {
		return
	}
	fields := []any{"status", status, "error", err, "path", c.FullPath()}
	if p := currentPrincipal(c); p.Authenticated() {
		fields = append(fields, "user_id", p.UserID)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
		return
	}
	logger.Warn("request rejected", fields...)
}
