package statusapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

// Server serves the live status API while a run is in flight. It is
// best-effort observability: serve errors are logged, never fatal.
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

// NewServer builds the gin router over the telemetry
func NewServer(addr string, telemetry *Telemetry, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, telemetry.Status())
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(telemetry.Registry(), promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in the background
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status api stopped", "error", err.Error())
		}
	}()
	s.logger.Info("status api listening", "addr", s.httpServer.Addr)
}

// Stop shuts the server down, waiting briefly for in-flight requests
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("status api shutdown", "error", err.Error())
	}
}
