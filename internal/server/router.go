package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/relaychat/relay-backend/internal/handlers"
	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/middleware"
	"github.com/relaychat/relay-backend/internal/utils"
)

type RouterConfig struct {
	Log            *logger.Logger
	MessageHandler *handlers.MessageHandler
	SearchHandler  *handlers.SearchHandler
	JobsHandler    *handlers.JobsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log != nil {
		router.Use(middleware.RequestLogger(cfg.Log))
	}

	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", cfg.Log)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(origins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/channels/:id/messages", cfg.MessageHandler.CreateInChannel)
		api.GET("/channels/:id/messages", cfg.MessageHandler.ListChannelMessages)
		api.POST("/conversations/:id/messages", cfg.MessageHandler.CreateInConversation)
		api.GET("/conversations/:id/messages", cfg.MessageHandler.ListConversationMessages)
		api.GET("/messages/:id", cfg.MessageHandler.GetByID)

		api.GET("/search", cfg.SearchHandler.Search)
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
	}

	return router
}
