package server

import (
	"github.com/nulzo/chat-registry/internal/server/middleware"
	v1 "github.com/nulzo/chat-registry/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.registries)
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(limiter.Middleware())
	{
		modelsHandler := v1.NewModelHandler(s.service)
		api.GET("/models", modelsHandler.ListModels)
		api.GET("/models/:id", modelsHandler.GetModel)

		chatHandler := v1.NewChatHandler(s.service)
		api.POST("/chat/completions", chatHandler.CreateCompletion)

		settingsHandler := v1.NewSettingsHandler(s.settings)
		api.GET("/settings/ollama", settingsHandler.GetOllama)
		api.PUT("/settings/ollama", settingsHandler.UpdateOllama)

		credentialsHandler := v1.NewCredentialsHandler(s.settings)
		api.GET("/credentials", credentialsHandler.ListCredentials)
		api.PUT("/credentials/:name", credentialsHandler.PutCredential)
		api.DELETE("/credentials/:name", credentialsHandler.DeleteCredential)
	}
}
