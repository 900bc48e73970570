// Package server is the ops HTTP surface: health, metrics and synchronous
// checks.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/logger"
	"kadrisk/pkg/health"
	"kadrisk/pkg/middleware"
	"kadrisk/pkg/ratelimit"
	"kadrisk/pkg/tracing"
)

type Server struct {
	cfg     config.ServerConfig
	router  *gin.Engine
	http    *http.Server
	limiter *ratelimit.PerClient
	logger  logger.Logger
}

type Options struct {
	Config  config.ServerConfig
	Tracing bool
	Health  *health.CheckerRegistry
	Checks  CheckRunner
	Logger  logger.Logger
}

func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if opts.Tracing {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(opts.Logger))

	s := &Server{
		cfg:    opts.Config,
		router: router,
		logger: opts.Logger,
	}

	registry := opts.Health
	if registry == nil {
		registry = health.NewCheckerRegistry()
	}
	router.GET("/health", func(c *gin.Context) {
		h := registry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if opts.Config.RateLimit.Enabled {
		s.limiter = ratelimit.NewPerClient(ratelimit.MiddlewareConfig{
			RPS:             opts.Config.RateLimit.RPS,
			Burst:           opts.Config.RateLimit.Burst,
			CleanupInterval: opts.Config.RateLimit.CleanupInterval,
			MaxAge:          opts.Config.RateLimit.MaxAge,
		})
		v1.Use(s.limiter.Middleware())
		opts.Logger.Infow("Rate limiting enabled", "rps", opts.Config.RateLimit.RPS, "burst", opts.Config.RateLimit.Burst)
	}
	if opts.Checks != nil {
		NewCheckHandler(opts.Checks, opts.Logger).RegisterRoutes(v1)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Config.Port),
		Handler:      router,
		ReadTimeout:  opts.Config.ReadTimeout,
		WriteTimeout: opts.Config.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfowCtx(ctx, "HTTP server starting", "port", s.cfg.Port)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}
