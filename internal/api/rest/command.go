package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/KevinKickass/OpenMotorControl/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// Duration stays raw so out-of-range literals such as 1e400 reach the
// controller as numbers instead of failing the bind.
type commandRequest struct {
	Cmd      any             `json:"cmd"`
	Duration json.RawMessage `json:"duration"`
}

// POST /command
func (s *Server) executeCommand(c *gin.Context) {
	if !isJSON(c.ContentType()) {
		s.respondError(c, "", http.StatusBadRequest, "invalid_body", "JSON payload required")
		return
	}

	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, "", http.StatusBadRequest, "invalid_body", "JSON payload required")
		return
	}

	raw, ok := req.Cmd.(string)
	if req.Cmd != nil && !ok {
		s.respondError(c, "", http.StatusBadRequest, "invalid_command", "Command must be a string")
		return
	}

	duration := decodeDuration(req.Duration)

	result, err := s.lm.MotorController().Execute(raw, duration)
	if err != nil {
		code, label := classify(err)
		if code == http.StatusInternalServerError {
			s.logger.Error("Motor command failed",
				zap.String("command", raw),
				zap.Error(err))
		} else {
			s.logger.Warn("Motor command rejected",
				zap.String("command", raw),
				zap.Any("duration", duration),
				zap.String("reason", motor.Message(err)))
		}
		s.respondError(c, result.Command, code, label, motor.Message(err))
		return
	}

	s.observeCommand(result.Command, "ok")
	c.JSON(http.StatusOK, types.NewOKResponse(result.Message, result.Duration))
}

func (s *Server) respondError(c *gin.Context, cmd motor.Command, code int, label, message string) {
	s.observeCommand(cmd, label)
	c.JSON(code, types.NewErrorResponse(message))
}

func (s *Server) observeCommand(cmd motor.Command, result string) {
	if s.metrics != nil {
		s.metrics.ObserveCommand(cmd, result)
	}
}

// classify maps controller errors to an HTTP status and a metrics label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, motor.ErrShutDown):
		return http.StatusServiceUnavailable, "shut_down"
	case errors.Is(err, motor.ErrInvalidCommand):
		return http.StatusBadRequest, "invalid_command"
	case errors.Is(err, motor.ErrUnknownCommand):
		return http.StatusBadRequest, "unknown_command"
	case errors.Is(err, motor.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	default:
		return http.StatusInternalServerError, "hardware_error"
	}
}

// decodeDuration returns nil for an absent or null duration. Numbers come
// back as json.Number.
func decodeDuration(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func isJSON(contentType string) bool {
	return contentType == binding.MIMEJSON || strings.HasSuffix(contentType, "+json")
}
