package handlers

import (
	"errors"
	"net/http"
	"time"

	providerRepo "bookify/database/repository/provider"
	"bookify/models"
	"bookify/services/booking"
	"bookify/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProviderHandler manages provider calendars: recurring weekly windows
// and explicit blocked windows.
type ProviderHandler struct {
	Repo       providerRepo.Repository
	Calculator booking.AvailabilityCalculator
	Logger     *zap.Logger
}

func NewProviderHandler(repo providerRepo.Repository, calc booking.AvailabilityCalculator, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{Repo: repo, Calculator: calc, Logger: logger}
}

// GetProviderByIDHandler handles GET /api/providers/:id.
func (h *ProviderHandler) GetProviderByIDHandler(c *gin.Context) {
	p, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "provider not found", "")
			return
		}
		h.Logger.Error("provider lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch provider", "")
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetWeeklyAvailabilityHandler handles GET /api/providers/:id/schedule.
func (h *ProviderHandler) GetWeeklyAvailabilityHandler(c *gin.Context) {
	wa, err := h.Repo.GetWeeklyAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "no availability configured", "")
			return
		}
		h.Logger.Error("availability lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch availability", "")
		return
	}
	c.JSON(http.StatusOK, wa)
}

// SetWeeklyAvailabilityHandler handles PUT /api/providers/:id/schedule.
func (h *ProviderHandler) SetWeeklyAvailabilityHandler(c *gin.Context) {
	var wa models.WeeklyAvailability
	if err := c.ShouldBindJSON(&wa); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	wa.ProviderID = c.Param("id")
	for _, windows := range wa.Windows {
		for _, w := range windows {
			if _, err := models.NewAvailabilityWindow(w.Start, w.End); err != nil {
				utils.JSONError(c, http.StatusBadRequest, "invalid window", err.Error())
				return
			}
		}
	}
	if err := h.Repo.SetWeeklyAvailability(c.Request.Context(), &wa); err != nil {
		h.Logger.Error("availability update failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to update availability", "")
		return
	}
	h.Calculator.InvalidateProvider(c.Request.Context(), wa.ProviderID)
	c.JSON(http.StatusOK, wa)
}

// ListBlockedWindowsHandler handles GET /api/providers/:id/blocks.
// Query params: from, to (dates formatted 2006-01-02).
func (h *ProviderHandler) ListBlockedWindowsHandler(c *gin.Context) {
	blocks, err := h.Repo.ListBlockedWindows(c.Request.Context(), c.Param("id"),
		c.Query("from"), c.Query("to"))
	if err != nil {
		h.Logger.Error("blocked window lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch blocked windows", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// AddBlockedWindowHandler handles POST /api/providers/:id/blocks.
func (h *ProviderHandler) AddBlockedWindowHandler(c *gin.Context) {
	var input struct {
		Date    string `json:"date" binding:"required"`
		Start   int    `json:"start"`
		End     int    `json:"end"`
		FullDay bool   `json:"fullDay"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}
	if !input.FullDay {
		if _, err := models.NewAvailabilityWindow(input.Start, input.End); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid window", err.Error())
			return
		}
	}

	bw := &models.BlockedWindow{
		BlockID:    uuid.New().String(),
		ProviderID: c.Param("id"),
		Date:       input.Date,
		Start:      input.Start,
		End:        input.End,
		FullDay:    input.FullDay,
		Reason:     input.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Repo.AddBlockedWindow(c.Request.Context(), bw); err != nil {
		h.Logger.Error("blocked window create failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to add blocked window", "")
		return
	}
	h.Calculator.InvalidateProvider(c.Request.Context(), bw.ProviderID)
	c.JSON(http.StatusCreated, bw)
}

// RemoveBlockedWindowHandler handles DELETE /api/providers/:id/blocks/:blockID.
func (h *ProviderHandler) RemoveBlockedWindowHandler(c *gin.Context) {
	if err := h.Repo.RemoveBlockedWindow(c.Request.Context(), c.Param("blockID")); err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "blocked window not found", "")
			return
		}
		h.Logger.Error("blocked window delete failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to remove blocked window", "")
		return
	}
	h.Calculator.InvalidateProvider(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
