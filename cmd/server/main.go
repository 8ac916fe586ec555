package main

import (
	"context"
	"log"
	"time"

	"fulfillment-api/internal/api"
	"fulfillment-api/internal/config"
	"fulfillment-api/internal/database"
	"fulfillment-api/internal/events"
	"fulfillment-api/internal/services"
	"fulfillment-api/internal/store"
	"fulfillment-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize databases and Redis
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Storage: durable store fronted by the local fallback
	durable := store.New(database.GetDurable())
	local := store.New(database.GetFallback())
	fallback := store.NewFallbackStore(durable, local)

	// Event bus
	var sink events.Sink = events.LogSink{}
	if database.GetRedis() != nil {
		sink = events.NewRedisSink(database.GetRedis())
	}

	// Services
	var mailer services.Mailer
	if brevoMailer := services.NewBrevoMailer(); brevoMailer != nil {
		mailer = brevoMailer
	}
	dispatcher := services.NewDispatcher(
		sink,
		mailer,
		services.NewWebhookAlerter(config.AppConfig.WebhookURL, config.AppConfig.WebhookSecret),
		config.AppConfig.OpsEmail,
	)
	tracker := services.NewIssueTracker(fallback)
	synchronizer := services.NewSynchronizer(fallback, dispatcher)
	allocator := services.NewAllocator(fallback, tracker, synchronizer, dispatcher)
	inventory := services.NewInventory(fallback, dispatcher)

	// Periodic reconciliation sweep
	go runSweep(synchronizer, config.AppConfig.ReconcileIntervalMinutes)

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, &api.Handlers{
		Inventory:    inventory,
		Allocator:    allocator,
		Tracker:      tracker,
		Synchronizer: synchronizer,
	})

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// runSweep replays fallback writes and reconciles unlinked
// subscriptions on a fixed interval.
func runSweep(synchronizer *services.Synchronizer, intervalMinutes int) {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		replayed, attached, err := synchronizer.Sweep(ctx)
		cancel()
		if err != nil {
			logging.Errorf("Reconciliation sweep failed: %v", err)
			continue
		}
		if replayed > 0 || attached > 0 {
			logging.Infof("Reconciliation sweep: replayed %d, attached %d", replayed, attached)
		}
	}
}
