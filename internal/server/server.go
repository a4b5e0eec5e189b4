package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/gateway"
	"github.com/nulzo/chat-registry/internal/server/middleware"
	v1 "github.com/nulzo/chat-registry/internal/server/v1"
	"github.com/nulzo/chat-registry/internal/server/validator"
	"github.com/nulzo/chat-registry/internal/settings"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     *zap.Logger
	service    gateway.Service
	settings   *settings.Service
	registries v1.RegistrySource
}

func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, settingsSvc *settings.Service, registries v1.RegistrySource) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()

	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}

	s := &Server{
		router:     engine,
		config:     cfg,
		logger:     logger,
		service:    service,
		settings:   settingsSvc,
		registries: registries,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
