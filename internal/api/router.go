package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/madickediagne/LOGISEN/internal/api/handlers"
	"github.com/madickediagne/LOGISEN/internal/api/middleware"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient *asynq.Client) *gin.Engine {
	userService := services.NewUserService(db, cfg)
	listingService := services.NewListingService(db, cfg)
	visitService := services.NewVisitService(db, cfg, listingService, taskClient)
	chatService := services.NewChatService(db, cfg, listingService, userService)
	favoriteService := services.NewFavoriteService(db, cfg, listingService)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(cfg, userService)
	userHandler := handlers.NewUserHandler(userService)
	listingHandler := handlers.NewListingHandler(cfg, listingService, userService, s3StorageService, taskClient, rdb)
	visitHandler := handlers.NewVisitHandler(visitService, userService)
	chatHandler := handlers.NewChatHandler(chatService, userService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/listing/search", listingHandler.SearchListings)
		v1.GET("/listing/:id", listingHandler.GetListingByID)
		v1.GET("/user/:id", userHandler.GetUserByID)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/me", userHandler.GetMe)
			authRequired.PATCH("/me", userHandler.UpdateMe)
			authRequired.GET("/me/listings", listingHandler.MyListings)
			authRequired.GET("/me/visits", visitHandler.MyVisits)
			authRequired.GET("/me/visits/stream", visitHandler.StreamMyVisits)
			authRequired.GET("/me/conversations", chatHandler.MyConversations)
			authRequired.GET("/me/conversations/stream", chatHandler.StreamMyConversations)
			authRequired.GET("/me/favorites", favoriteHandler.MyFavorites)

			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.PATCH("/listing/:id", listingHandler.UpdateListing)
			authRequired.DELETE("/listing/:id", listingHandler.DeleteListing)
			authRequired.POST("/listing/:id/images/presign", listingHandler.PresignImageUpload)
			authRequired.POST("/listing/:id/images/complete", listingHandler.CompleteImageUpload)
			authRequired.POST("/listing/:id/favorite", favoriteHandler.ToggleFavorite)

			authRequired.POST("/visit", visitHandler.CreateVisit)
			authRequired.PATCH("/visit/:id/status", visitHandler.UpdateVisitStatus)
			authRequired.PATCH("/visit/:id/date", visitHandler.UpdateVisitDate)

			authRequired.POST("/conversation", chatHandler.EnsureConversation)
			authRequired.GET("/conversation/:id/messages", chatHandler.GetMessages)
			authRequired.GET("/conversation/:id/messages/stream", chatHandler.StreamMessages)
			authRequired.POST("/conversation/:id/messages", chatHandler.PostMessage)
		}
	}

	return r
}
