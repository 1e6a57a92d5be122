package routes

import (
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/api/handlers"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/api/middleware"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(
	cfg *config.Config,
	logger *zap.Logger,
	chatHandler *handlers.ChatHandler,
	settingsHandler *handlers.SettingsHandler,
	promptsHandler *handlers.PromptsHandler,
	modelsHandler *handlers.ModelsHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.TimeoutMiddleware(cfg.Server.WriteTimeout))

	// Health check
	r.GET("/health", healthHandler.Check)

	// API routes
	api := r.Group("/api/v1")
	{
		chat := api.Group("/chat")
		{
			chat.POST("", chatHandler.SendMessage)
			chat.GET("/history", chatHandler.GetHistory)
			chat.POST("/clear", chatHandler.ClearHistory)
			chat.GET("/state", chatHandler.GetState)
			chat.GET("/metrics", chatHandler.GetMetrics)
		}

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", settingsHandler.UpdateSettings)

		prompts := api.Group("/prompts")
		{
			prompts.GET("", promptsHandler.ListPrompts)
			prompts.POST("", promptsHandler.CreatePrompt)
			prompts.GET("/current", promptsHandler.GetCurrentPrompt)
			prompts.PUT("/:id", promptsHandler.UpdatePrompt)
			prompts.DELETE("/:id", promptsHandler.DeletePrompt)
			prompts.POST("/:id/select", promptsHandler.SelectPrompt)
		}

		api.GET("/models", modelsHandler.GetAvailableModels)
	}

	return r
}
