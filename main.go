// File: bookify/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookify/config"
	"bookify/cron"
	"bookify/database"
	bookingRepo "bookify/database/repository/booking"
	customerRepo "bookify/database/repository/customer"
	idempotencyRepo "bookify/database/repository/idempotency"
	providerRepo "bookify/database/repository/provider"
	"bookify/handlers"
	"bookify/middleware"
	"bookify/routes"
	"bookify/services/booking"
	"bookify/services/events"
	"bookify/services/payment"
	"bookify/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bkRepo := bookingRepo.NewMongoBookingRepo()
	provRepo := providerRepo.NewMongoProviderRepo()
	custRepo := customerRepo.NewMongoCustomerRepo()
	ledger := idempotencyRepo.NewMongoLedger()

	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := bkRepo.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}
	if err := ledger.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure idempotency indexes: %v", err)
	}
	cancelInit()

	// event bus.
	var dispatcher events.Dispatcher
	amqpDispatcher, err := events.NewAMQPDispatcher(config.AppConfig.AMQPUrl, config.AppConfig.EventExchange)
	if err != nil {
		logger.Sugar().Warnf("main: AMQP unavailable, events stay in-process: %v", err)
		dispatcher = events.NewMemoryDispatcher()
	} else {
		dispatcher = amqpDispatcher
		defer amqpDispatcher.Close()
	}

	// services.
	orchestrator := payment.NewOrchestrator(
		payment.NewStripeGateway(config.AppConfig.StripeKey),
		ledger,
		logger,
	)

	availabilityCalc := &booking.DefaultAvailabilityCalculator{
		Providers: provRepo,
		Bookings:  bkRepo,
		Cache:     utils.GetCacheClient(),
	}

	bookingService := &booking.DefaultBookingService{
		Repo:         bkRepo,
		Providers:    provRepo,
		Customers:    custRepo,
		Availability: availabilityCalc,
		Conflicts:    &booking.DefaultConflictDetector{Repo: bkRepo},
		Payments:     orchestrator,
		Dispatcher:   dispatcher,
		Logger:       logger,
	}

	// background sweeps.
	cron.InitLifecycleWorker(bookingService)
	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Booking:      handlers.NewBookingHandler(bookingService, logger),
		Availability: handlers.NewAvailabilityHandler(availabilityCalc, bookingService, logger),
		Provider:     handlers.NewProviderHandler(provRepo, availabilityCalc, logger),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
