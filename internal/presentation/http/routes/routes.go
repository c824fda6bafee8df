package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sokoflow/commerce-api/internal/config"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/internal/presentation/http/handler"
	"github.com/sokoflow/commerce-api/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Order  *handler.OrderHandler
	Return *handler.ReturnHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		rateLimiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		v1.Use(rateLimiter.Middleware())

		orders := v1.Group("/orders")
		{
			orders.GET("", h.Order.List)
			orders.GET("/:id", h.Order.Get)
			// Single-stage create goes through the replay middleware; the
			// returns workflow manages its key itself.
			orders.POST("", middleware.Idempotency(deps.IdempotencyRepo), h.Order.Create)
			orders.POST("/:id/returns", h.Return.RequestReturn)
		}
	}

	return router
}
