package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"casewatch/pkg/config"
	"casewatch/pkg/dispatcher"
	"casewatch/pkg/handlers"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/middleware"
	"casewatch/pkg/scheduler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server timeouts
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 150 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// HTTPServer is the API surface over the scheduler
type HTTPServer struct {
	server     *http.Server
	router     *gin.Engine
	config     *config.Config
	handlerSvc *handlers.HandlerService
}

// NewHTTPServer creates the HTTP server with routes and middleware
// configured
func NewHTTPServer(cfg *config.Config, manager *scheduler.Manager, store *metrics.Store, disp *dispatcher.Dispatcher) *HTTPServer {
	sc := cfg.GetServerConfig()
	logger.Info("Initializing HTTP server",
		zap.String("address", sc.Address), zap.Int("port", sc.Port))

	if cfg.GetAppConfig().Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.GinZapLogger(logger.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(cors.Default())

	s := &HTTPServer{
		router:     router,
		config:     cfg,
		handlerSvc: handlers.NewHandlerService(cfg, manager, store, disp),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", sc.Address, sc.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	logger.Info("HTTP server initialized", zap.String("listen_addr", addr))
	return s
}

func (s *HTTPServer) setupRoutes() {
	h := s.handlerSvc

	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		sched := v1.Group("/scheduler")
		{
			sched.POST("/update", h.UpdateSchedules)
			sched.GET("/schedules", h.CurrentSchedules)
			sched.GET("/schedules/:source", h.AnalyzeSource)
			sched.GET("/stats", h.Stats)
			sched.GET("/recommendations", h.Recommendations)
			sched.GET("/runs", h.RecentRuns)
			sched.GET("/capabilities", h.GetCapabilities)
		}

		sources := v1.Group("/sources")
		{
			sources.POST("/:source/metrics", h.RecordMetrics)
			sources.GET("/:source/metrics", h.SourceWindow)
			sources.POST("/:source/run", h.ForceRun)
		}

		v1.POST("/commands", h.ExecuteCommand)
		v1.GET("/system/status", h.GetStatus)
	}

	logger.Info("HTTP routes configured")
}

// Start starts the HTTP server and blocks until it closes
func (s *HTTPServer) Start() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
