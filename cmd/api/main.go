package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sokoflow/commerce-api/internal/application/service"
	"github.com/sokoflow/commerce-api/internal/config"
	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/infrastructure/database"
	"github.com/sokoflow/commerce-api/internal/infrastructure/repository"
	"github.com/sokoflow/commerce-api/internal/presentation/http/handler"
	"github.com/sokoflow/commerce-api/internal/presentation/http/routes"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	txScope := repository.NewGormTransactionScope(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	shippingRepo := repository.NewShippingRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Initialize services
	idempotencyService := service.NewIdempotencyService(idempotencyRepo, txScope, cfg.Idempotency.LockTimeout)
	orderService := service.NewOrderService(orderRepo)
	returnService := service.NewReturnService(returnRepo, lineItemRepo)
	shippingService := service.NewShippingService(shippingRepo)
	eventService := service.NewEventService(eventRepo)

	returnFlow, err := service.NewReturnFlow(idempotencyService, orderService, returnService, shippingService, eventService)
	if err != nil {
		log.Fatalf("Failed to build return workflow: %v", err)
	}

	// Relay committed outbox events to in-process subscribers.
	eventService.Subscribe(service.EventReturnRequested, func(event entity.Event) {
		log.Printf("event %s: %s", event.Name, event.Payload)
	})
	go relayEvents(eventService)

	// Initialize handlers
	handlers := &routes.Handlers{
		Order:  handler.NewOrderHandler(orderService),
		Return: handler.NewReturnHandler(returnFlow),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s on port %s", cfg.App.Name, port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func relayEvents(events *service.EventService) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := events.DispatchPending(ctx, 100); err != nil {
			log.Printf("events: dispatch pending: %v", err)
		}
		cancel()
	}
}
