package main // Entry point package

import (
	"log"  // Logging library
	"time" // Durations for the hold window

	"github.com/joho/godotenv"    // Optional .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/teaterhuset/seat-booking/internal/config"     // Environment configuration
	"github.com/teaterhuset/seat-booking/internal/database"   // MySQL connection helper
	"github.com/teaterhuset/seat-booking/internal/handler"    // HTTP handlers
	"github.com/teaterhuset/seat-booking/internal/middleware" // Rate limiting middleware
	"github.com/teaterhuset/seat-booking/internal/queue"      // Booking event publisher/consumer
	"github.com/teaterhuset/seat-booking/internal/realtime"   // Seat-change notifications
	"github.com/teaterhuset/seat-booking/internal/repository" // Data access layer
	"github.com/teaterhuset/seat-booking/internal/router"     // Route registration
	"github.com/teaterhuset/seat-booking/internal/service"    // Reservation and booking services
)

func main() {
	// Load a local .env file when present; ignored in containerized envs.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	// Open the seat store.  Its lifecycle is owned here; everything
	// downstream receives the handle explicitly.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and realtime notifications; both
	// degrade to no-ops when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and realtime seat events disabled")
	}

	seatRepo := repository.NewSeatRepo(db)
	showRepo := repository.NewShowRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	tokens := service.NewHoldTokens(cfg.HoldTokenSecret)
	notifier := realtime.NewPublisher(rdb)
	publisher := queue.NewPublisher(cfg.AMQPURL)

	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute
	reservations := service.NewReservationService(seatRepo, tokens, notifier, holdTTL)
	bookings := service.NewBookingService(seatRepo, bookingRepo, showRepo, tokens, notifier, publisher)

	// Consume booking confirmations in the background; the consumer
	// reconnects on its own and never takes down the server.
	go queue.StartBookingConsumer(cfg.AMQPURL)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewShowHandler(showRepo, seatRepo),
		handler.NewReservationHandler(reservations),
		handler.NewBookingHandler(bookings),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, hold ttl=%s)", addr, cfg.Env, holdTTL)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
