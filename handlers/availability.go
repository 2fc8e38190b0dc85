package handlers

import (
	"net/http"
	"strconv"
	"time"

	"bookify/services/booking"
	"bookify/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AvailabilityHandler exposes provider calendar queries.
type AvailabilityHandler struct {
	Calculator booking.AvailabilityCalculator
	Service    booking.BookingService
	Logger     *zap.Logger
}

func NewAvailabilityHandler(calc booking.AvailabilityCalculator, svc booking.BookingService, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Calculator: calc, Service: svc, Logger: logger}
}

// GetAvailableSlots handles GET /api/providers/:id/availability.
// Query params: from, to (RFC 3339), duration (minutes).
func (h *AvailabilityHandler) GetAvailableSlots(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid 'from' timestamp", err.Error())
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid 'to' timestamp", err.Error())
		return
	}
	durationMin, err := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid 'duration'", err.Error())
		return
	}

	slots, err := h.Calculator.CalculateAvailableSlots(c.Request.Context(), c.Param("id"),
		from, to, time.Duration(durationMin)*time.Minute)
	if err != nil {
		if booking.CodeOf(err) == booking.CodeValidation {
			utils.JSONError(c, http.StatusBadRequest, "invalid availability query", err.Error())
			return
		}
		h.Logger.Error("availability calculation failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to compute availability", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// CheckAvailability handles GET /api/providers/:id/availability/check.
// Query params: start, end (RFC 3339).
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid 'start' timestamp", err.Error())
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid 'end' timestamp", err.Error())
		return
	}

	available, conflicts, err := h.Service.CheckAvailability(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		if booking.CodeOf(err) == booking.CodeValidation {
			utils.JSONError(c, http.StatusBadRequest, "invalid time range", err.Error())
			return
		}
		h.Logger.Error("availability check failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to check availability", "")
		return
	}

	conflictIDs := make([]string, 0, len(conflicts))
	for _, b := range conflicts {
		conflictIDs = append(conflictIDs, b.ID)
	}
	c.JSON(http.StatusOK, gin.H{"available": available, "conflictingBookingIds": conflictIDs})
}
