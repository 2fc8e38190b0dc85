package routes

import (
	"net/http"
	"time"

	"bookify/handlers"
	"bookify/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle collects the handlers the router wires up.
type HandlerBundle struct {
	Booking      *handlers.BookingHandler
	Availability *handlers.AvailabilityHandler
	Provider     *handlers.ProviderHandler
}

// RegisterBookingRoutes sets up the endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	bookings := r.Group("/api/bookings")
	{
		bookings.POST("", hb.Booking.CreateBooking)
		bookings.GET("/:id", hb.Booking.GetBooking)
		bookings.GET("/code/:code", hb.Booking.GetBookingByCode)
		bookings.GET("/customer/:id", hb.Booking.ListCustomerBookings)
		bookings.GET("/provider/:id", hb.Booking.ListProviderBookings)

		bookings.POST("/:id/accept", hb.Booking.AcceptBooking)
		bookings.POST("/:id/reject", hb.Booking.RejectBooking)
		bookings.POST("/:id/cancel", hb.Booking.CancelBooking)
		bookings.POST("/:id/complete", hb.Booking.CompleteBooking)
		bookings.POST("/:id/no-show", hb.Booking.MarkNoShow)

		bookings.POST("/:id/payment", hb.Booking.ProcessPayment)
		bookings.POST("/:id/payment/confirm", hb.Booking.ConfirmPayment)
		bookings.POST("/:id/payment/fail", hb.Booking.FailPayment)
	}
}

// RegisterProviderRoutes registers provider calendar endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/providers")
	{
		api.GET("/:id", hb.Provider.GetProviderByIDHandler)

		api.GET("/:id/schedule", hb.Provider.GetWeeklyAvailabilityHandler)
		api.PUT("/:id/schedule", hb.Provider.SetWeeklyAvailabilityHandler)

		api.GET("/:id/blocks", hb.Provider.ListBlockedWindowsHandler)
		api.POST("/:id/blocks", hb.Provider.AddBlockedWindowHandler)
		api.DELETE("/:id/blocks/:blockID", hb.Provider.RemoveBlockedWindowHandler)

		api.GET("/:id/availability", hb.Availability.GetAvailableSlots)
		api.GET("/:id/availability/check", hb.Availability.CheckAvailability)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "health": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
}
