package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	bookingapp "chakastays/internal/app/handlers/booking"
	"chakastays/internal/app/queries"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bookingRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// Check runs the pre-flight validator. It is open to anonymous callers.
func (h BookingHandler) Check(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	checkIn, checkOut, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	query := bookingapp.CheckBookingQuery{
		PropertyID: req.PropertyID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     req.Guests,
	}
	result, err := queries.Ask[bookingapp.CheckBookingQuery, dto.BookingCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	checkIn, checkOut, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		Who:             user,
		CommandID:       generateCommandID(),
		PropertyID:      req.PropertyID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		IdempotencyKeyV: scopedIdempotencyKey(user.UserID, c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, h.Logger, http.StatusBadRequest, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		Who:       user,
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseRange accepts calendar dates or RFC 3339 timestamps.
func parseRange(checkInRaw, checkOutRaw string) (time.Time, time.Time, error) {
	checkIn, ok := parseFlexibleTime(checkInRaw)
	if !ok {
		return time.Time{}, time.Time{}, errors.New("check_in must be a valid date")
	}
	checkOut, ok := parseFlexibleTime(checkOutRaw)
	if !ok {
		return time.Time{}, time.Time{}, errors.New("check_out must be a valid date")
	}
	return checkIn, checkOut, nil
}

func parseFlexibleTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// scopedIdempotencyKey keeps one caller from replaying another caller's result.
func scopedIdempotencyKey(userID, header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	return userID + ":" + header
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
