package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookify/models"
	"bookify/services/booking"
	"bookify/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Service booking.BookingService
	Logger  *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req booking.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetBookingByCode handles GET /api/bookings/code/:code.
func (h *BookingHandler) GetBookingByCode(c *gin.Context) {
	b, err := h.Service.GetBookingByConfirmationCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListCustomerBookings handles GET /api/bookings/customer/:id.
func (h *BookingHandler) ListCustomerBookings(c *gin.Context) {
	out, err := h.Service.ListCustomerBookings(c.Request.Context(), c.Param("id"), listOptionsFromQuery(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// ListProviderBookings handles GET /api/bookings/provider/:id.
func (h *BookingHandler) ListProviderBookings(c *gin.Context) {
	out, err := h.Service.ListProviderBookings(c.Request.Context(), c.Param("id"), listOptionsFromQuery(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// AcceptBooking handles POST /api/bookings/:id/accept.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
		Notes      string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.AcceptBooking(c.Request.Context(), c.Param("id"), input.ProviderID, input.Notes)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RejectBooking handles POST /api/bookings/:id/reject.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.RejectBooking(c.Request.Context(), c.Param("id"), input.ProviderID, input.Reason)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var input struct {
		ActorID string `json:"actorId" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), input.ActorID, input.Reason)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteBooking handles POST /api/bookings/:id/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.CompleteBooking(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// MarkNoShow handles POST /api/bookings/:id/no-show.
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	b, err := h.Service.MarkNoShow(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ProcessPayment handles POST /api/bookings/:id/payment.
func (h *BookingHandler) ProcessPayment(c *gin.Context) {
	b, intent, err := h.Service.ProcessPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b, "paymentIntent": intent})
}

// ConfirmPayment handles POST /api/bookings/:id/payment/confirm. In
// production this is driven by the gateway webhook.
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	b, err := h.Service.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// FailPayment handles POST /api/bookings/:id/payment/fail.
func (h *BookingHandler) FailPayment(c *gin.Context) {
	b, err := h.Service.HandlePaymentFailure(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func listOptionsFromQuery(c *gin.Context) models.ListOptions {
	var opts models.ListOptions
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			opts.Statuses = append(opts.Statuses, models.BookingStatus(strings.TrimSpace(s)))
		}
	}
	opts.Limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	opts.Offset, _ = strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if sort := c.Query("sort"); sort != "" {
		opts.SortBy = sort
	}
	opts.SortDesc = c.Query("order") == "desc"
	return opts
}

// respondServiceError maps a typed service error to an HTTP response.
func (h *BookingHandler) respondServiceError(c *gin.Context, err error) {
	code := booking.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case booking.CodeValidation:
		status = http.StatusBadRequest
	case booking.CodeNotFound:
		status = http.StatusNotFound
	case booking.CodeAuthorization:
		status = http.StatusForbidden
	case booking.CodeTransition, booking.CodeConflict, booking.CodeConcurrency:
		status = http.StatusConflict
	case booking.CodePayment:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("booking request failed", zap.Error(err))
	}

	var svcErr *booking.Error
	if errors.As(err, &svcErr) && len(svcErr.ConflictingIDs) > 0 {
		c.JSON(status, gin.H{
			"error":                 svcErr.Message,
			"code":                  string(code),
			"conflictingBookingIds": svcErr.ConflictingIDs,
		})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(code)})
}
