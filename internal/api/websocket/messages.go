package websocket

import (
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/motor"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Motion messages
	MessageTypeMotionStarted   MessageType = "motion_started"
	MessageTypeMotionCompleted MessageType = "motion_completed"
	MessageTypeMotorsStopped   MessageType = "motors_stopped"

	// Controller lifecycle messages
	MessageTypeControllerShutdown MessageType = "controller_shutdown"
	MessageTypeControllerStatus   MessageType = "controller_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// MotionData describes a motion or stop event
type MotionData struct {
	CommandID string  `json:"command_id,omitempty"`
	Command   string  `json:"command,omitempty"`
	Pin       string  `json:"pin,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewEventMessage converts a controller event, keeping its timestamp.
func NewEventMessage(ev motor.Event) Message {
	return Message{
		Type:      MessageType(ev.Type),
		Timestamp: ev.Timestamp,
		Data: MotionData{
			CommandID: ev.CommandID,
			Command:   string(ev.Command),
			Pin:       ev.Pin,
			Duration:  ev.Duration,
		},
	}
}

func NewStatusMessage(status motor.Status) Message {
	return NewMessage(MessageTypeControllerStatus, status)
}
