package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/api/websocket"
	"github.com/KevinKickass/OpenMotorControl/internal/config"
	"github.com/KevinKickass/OpenMotorControl/internal/interfaces"
	"github.com/KevinKickass/OpenMotorControl/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	lm      interfaces.LifecycleManager
	logger  *zap.Logger
	server  *http.Server
	wsHub   *websocket.Hub
	metrics *metrics.Collector

	listener net.Listener
	errChan  chan error
}

// NewServer wires the routes. wsHub and collector may be nil, in which case
// the /ws and /metrics routes are not registered.
func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, collector *metrics.Collector) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		lm:      lm,
		logger:  logger,
		wsHub:   wsHub,
		metrics: collector,
		errChan: make(chan error, 1),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are delivered on Errors.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = listener

	s.logger.Info("Starting REST API server", zap.String("address", listener.Addr().String()))
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("REST server failed", zap.Error(err))
			s.errChan <- err
		}
	}()
	return nil
}

func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	if s.metrics != nil {
		s.router.Use(MetricsMiddleware(s.metrics))
	}
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	s.router.POST("/command", s.executeCommand)
	s.router.GET("/status", s.getStatus)

	system := s.router.Group("/system")
	{
		system.GET("/status", s.getSystemStatus)
		system.POST("/shutdown", s.shutdown)
	}

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	if s.wsHub != nil {
		s.router.GET("/ws", s.wsLiveConnection)
		s.router.GET("/ws/status", s.wsStatus)
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
