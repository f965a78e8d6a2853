package motor

import (
	"fmt"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
)

type State string

const (
	StateActive   State = "active"
	StateShutDown State = "shut_down"
)

type Command string

const (
	CommandForward  Command = "FORWARD"
	CommandBackward Command = "BACKWARD"
	CommandLeft     Command = "LEFT"
	CommandRight    Command = "RIGHT"
	CommandStop     Command = "STOP"
)

// PinLayout names the four BCM output lines of the drive and steering motors.
type PinLayout struct {
	Forward  int `json:"forward"`
	Backward int `json:"backward"`
	Left     int `json:"left"`
	Right    int `json:"right"`
}

// DefaultPinLayout is the wiring of the reference car.
func DefaultPinLayout() PinLayout {
	return PinLayout{Forward: 17, Backward: 27, Left: 22, Right: 23}
}

// All returns the pins in forward, backward, left, right order.
func (p PinLayout) All() []int {
	return []int{p.Forward, p.Backward, p.Left, p.Right}
}

func (p PinLayout) Name(pin int) string {
	switch pin {
	case p.Forward:
		return "forward"
	case p.Backward:
		return "backward"
	case p.Left:
		return "left"
	case p.Right:
		return "right"
	default:
		return fmt.Sprintf("GPIO%d", pin)
	}
}

func (p PinLayout) Validate() error {
	seen := make(map[int]string, 4)
	for _, pin := range p.All() {
		if pin < 0 {
			return fmt.Errorf("%w: pin %d is negative", ErrPinLayout, pin)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("%w: pin %d assigned to both %s and %s", ErrPinLayout, pin, other, p.Name(pin))
		}
		seen[pin] = p.Name(pin)
	}
	return nil
}

// Result is what a command reports back. Duration is the resolved duration
// in seconds and is nil for STOP.
type Result struct {
	Command  Command  `json:"command,omitempty"`
	Message  string   `json:"message"`
	Duration *float64 `json:"duration,omitempty"`
}

type Status struct {
	State            State                 `json:"state"`
	Busy             bool                  `json:"busy"`
	Command          Command               `json:"command,omitempty"`
	CommandID        string                `json:"command_id,omitempty"`
	Pins             map[string]gpio.Level `json:"pins"`
	LastCommand      Command               `json:"last_command,omitempty"`
	LastCommandAt    *time.Time            `json:"last_command_at,omitempty"`
	CommandsExecuted uint64                `json:"commands_executed"`
}

type EventType string

const (
	EventMotionStarted   EventType = "motion_started"
	EventMotionCompleted EventType = "motion_completed"
	EventMotorsStopped   EventType = "motors_stopped"
	EventShutdown        EventType = "controller_shutdown"
)

// Event is emitted by the controller while it holds the hardware lock.
type Event struct {
	Type      EventType `json:"type"`
	CommandID string    `json:"command_id,omitempty"`
	Command   Command   `json:"command,omitempty"`
	Pin       string    `json:"pin,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives controller events. OnEvent must not block.
type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }
