package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /status
func (s *Server) getStatus(c *gin.Context) {
	ctrl := s.lm.MotorController()
	c.JSON(http.StatusOK, gin.H{
		"system":     s.lm.GetCurrentStatus(),
		"controller": ctrl.Status(),
		"layout":     ctrl.Layout(),
		"limits":     ctrl.Limits(),
	})
}

// GET /system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}

// POST /system/shutdown
func (s *Server) shutdown(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Shutdown initiated",
	})

	// The request context ends with this handler, so shut down on a fresh one.
	go func() {
		if err := s.lm.Shutdown(context.Background()); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}()
}
