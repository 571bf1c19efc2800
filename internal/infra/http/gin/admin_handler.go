package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	adminapp "chakastays/internal/app/handlers/admin"
	domainuser "chakastays/internal/domain/user"
)

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type banRequest struct {
	Reason string `json:"reason"`
}

func (h AdminHandler) BanProperty(c *gin.Context) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req banRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, h.Logger, http.StatusBadRequest, err)
			return
		}
	}
	cmd := adminapp.BanPropertyCommand{
		Who:        admin,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Reason:     strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[adminapp.BanPropertyCommand, *dto.PropertyDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) UnbanProperty(c *gin.Context) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := adminapp.UnbanPropertyCommand{Who: admin, PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[adminapp.UnbanPropertyCommand, *dto.PropertyDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) RemoveProperty(c *gin.Context) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := adminapp.RemovePropertyCommand{Who: admin, PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[adminapp.RemovePropertyCommand, *adminapp.RemovalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
