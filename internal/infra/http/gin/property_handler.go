package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"chakastays/internal/app/dto"
	availabilityapp "chakastays/internal/app/handlers/availability"
	propertyapp "chakastays/internal/app/handlers/properties"
	"chakastays/internal/app/queries"
)

type PropertyHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h PropertyHandler) Search(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query, err := parseSearchQuery(c)
	if err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	result, err := queries.Ask[propertyapp.SearchPropertiesQuery, dto.PropertyCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := propertyapp.GetPropertyQuery{
		Who:        currentPrincipal(c),
		PropertyID: strings.TrimSpace(c.Param("id")),
	}
	result, err := queries.Ask[propertyapp.GetPropertyQuery, dto.PropertyDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Availability(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := availabilityapp.GetAvailabilityQuery{PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseSearchQuery(c *gin.Context) (propertyapp.SearchPropertiesQuery, error) {
	q := propertyapp.SearchPropertiesQuery{
		City:      strings.TrimSpace(c.Query("city")),
		Country:   strings.TrimSpace(c.Query("country")),
		Text:      strings.TrimSpace(c.Query("q")),
		Amenities: splitList(c.QueryArray("amenities")),
		Sort:      strings.TrimSpace(c.Query("sort")),
	}
	var err error
	if q.MinGuests, err = parseIntParam(c.Query("guests"), "guests"); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(c.Query("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(c.Query("offset"), "offset"); err != nil {
		return q, err
	}
	if q.PriceMin, err = parseDecimalParam(c.Query("price_min"), "price_min"); err != nil {
		return q, err
	}
	if q.PriceMax, err = parseDecimalParam(c.Query("price_max"), "price_max"); err != nil {
		return q, err
	}
	return q, nil
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIntParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func parseDecimalParam(raw, name string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New(name + " must be a number")
	}
	return v, nil
}

var _ PropertyHTTP = PropertyHandler{}
