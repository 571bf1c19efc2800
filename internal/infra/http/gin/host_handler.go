package ginserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	blocksapp "chakastays/internal/app/handlers/blocks"
	dashboardapp "chakastays/internal/app/handlers/dashboard"
	propertyapp "chakastays/internal/app/handlers/properties"
	"chakastays/internal/app/queries"
	domainuser "chakastays/internal/domain/user"
)

type HostHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type propertyRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Country       string   `json:"country"`
	PricePerNight string   `json:"price_per_night"`
	MaxGuests     int      `json:"max_guests"`
	Bedrooms      int      `json:"bedrooms"`
	Beds          int      `json:"beds"`
	Baths         float64  `json:"baths"`
	Amenities     []string `json:"amenities"`
}

func (r propertyRequest) input() propertyapp.PropertyInput {
	return propertyapp.PropertyInput{
		Title:         strings.TrimSpace(r.Title),
		Description:   strings.TrimSpace(r.Description),
		Address:       strings.TrimSpace(r.Address),
		City:          strings.TrimSpace(r.City),
		Country:       strings.TrimSpace(r.Country),
		PricePerNight: strings.TrimSpace(r.PricePerNight),
		MaxGuests:     r.MaxGuests,
		Bedrooms:      r.Bedrooms,
		Beds:          r.Beds,
		Baths:         r.Baths,
		Amenities:     r.Amenities,
	}
}

type blockRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

func (h HostHandler) ListProperties(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[propertyapp.ListHostPropertiesQuery, dto.PropertyCollection](c.Request.Context(), h.Queries, propertyapp.ListHostPropertiesQuery{Who: host})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) CreateProperty(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := propertyapp.CreatePropertyCommand{Who: host, PropertyInput: req.input()}
	result, err := commands.Dispatch[propertyapp.CreatePropertyCommand, *dto.PropertyDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostHandler) UpdateProperty(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := propertyapp.UpdatePropertyCommand{
		Who:           host,
		PropertyID:    strings.TrimSpace(c.Param("id")),
		PropertyInput: req.input(),
	}
	result, err := commands.Dispatch[propertyapp.UpdatePropertyCommand, *dto.PropertyDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) UploadImage(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	propertyID := strings.TrimSpace(c.Param("id"))
	upload, status, err := readImageUpload(c)
	if err != nil {
		respondWithError(c, h.Logger, status, err)
		return
	}
	cmd := propertyapp.UploadPropertyImageCommand{
		Who:         host,
		PropertyID:  propertyID,
		ObjectKey:   buildObjectKey("properties", propertyID, upload),
		ContentType: upload.ContentType,
		Reader:      bytes.NewReader(upload.Data),
	}
	result, err := commands.Dispatch[propertyapp.UploadPropertyImageCommand, *dto.ImageUploadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostHandler) BlockDates(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := blocksapp.BlockDatesCommand{
		Who:        host,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Start:      start,
		End:        end,
		Reason:     strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[blocksapp.BlockDatesCommand, *dto.BlockedDate](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostHandler) UnblockDates(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := blocksapp.UnblockDatesCommand{
		Who:        host,
		PropertyID: strings.TrimSpace(c.Param("id")),
		BlockID:    strings.TrimSpace(c.Param("blockID")),
	}
	if _, err := commands.Dispatch[blocksapp.UnblockDatesCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HostHandler) Dashboard(c *gin.Context) {
	host, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[dashboardapp.HostDashboardQuery, dto.HostDashboard](c.Request.Context(), h.Queries, dashboardapp.HostDashboardQuery{Who: host})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostHTTP = HostHandler{}
