package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/session"
	domainauth "chakastays/internal/domain/auth"
	domainuser "chakastays/internal/domain/user"
)

const sessionContextKey = "chakastays.session"

// AuthMiddleware resolves the bearer token into a session for the rest of the request.
// Unknown tokens leave the request anonymous.
type AuthMiddleware struct {
	Resolver session.Resolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Set(sessionContextKey, session.Anonymous())
		c.Next()
		return
	}
	sess, err := session.Resolve(c.Request.Context(), m.Resolver, token)
	if err != nil && !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
		m.Logger.Debug("token validation failed", "error", err)
	}
	c.Set(sessionContextKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	val, exists := c.Get(sessionContextKey)
	if !exists {
		return session.Anonymous()
	}
	sess, ok := val.(*session.Session)
	if !ok || sess == nil {
		return session.Anonymous()
	}
	return sess
}

// currentPrincipal is the caller snapshot, possibly anonymous.
func currentPrincipal(c *gin.Context) session.Principal {
	return currentSession(c).Principal()
}

// requireRole answers 401/403 itself when the caller does not qualify.
func requireRole(c *gin.Context, role domainuser.Role) (session.Principal, bool) {
	p := currentPrincipal(c)
	if !p.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return session.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return session.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
