package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ssnlakshya/mela/internal/api/handlers"
	"github.com/ssnlakshya/mela/internal/api/middleware"
	"github.com/ssnlakshya/mela/internal/config"
	"github.com/ssnlakshya/mela/internal/services"
	"github.com/ssnlakshya/mela/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, shortLinks services.IShortLinkService, retryQueue services.IShortLinkRetryEnqueuer) *gin.Engine {
	// Initialize services needed by API handlers
	allowlistService := services.NewAllowlistService(db)
	stallService := services.NewStallService(db, cfg, shortLinks, rdb, retryQueue)
	mediaStorage, err := storage.NewR2Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize R2 storage for API: %v", err)
	}

	r := gin.Default()

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	stallHandler := handlers.NewStallHandler(cfg, stallService)
	publicHandler := handlers.NewPublicHandler(stallService)
	mediaHandler := handlers.NewMediaHandler(mediaStorage)

	v1 := r.Group("/v1")
	{
		// Public Routes (rate limiting already applied globally)
		v1.GET("/stalls", publicHandler.ListStalls)
		v1.GET("/stalls/:slug", publicHandler.GetStallBySlug)
		v1.GET("/media", mediaHandler.GetMedia)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated owner portal routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AllowlistMiddleware(allowlistService))
		{
			authRequired.GET("/stall", stallHandler.GetMyStall)
			authRequired.POST("/stall", stallHandler.UpsertStall)
			authRequired.PUT("/stall", stallHandler.UpsertStall)
			authRequired.DELETE("/stall", stallHandler.DeleteStall)
			authRequired.POST("/upload", mediaHandler.UploadMedia)
		}
	}

	return r
}
