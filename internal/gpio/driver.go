package gpio

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Level represents the logical state of a digital output line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// MarshalText renders the level as "high" or "low" in JSON payloads.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

var (
	ErrNotConfigured = errors.New("pin not configured as output")
	ErrReleased      = errors.New("gpio driver already released")
)

// Driver is the hardware surface the motor controller depends on.
// Pins are addressed by their BCM numbers.
type Driver interface {
	// Configure sets the pin up as a digital output.
	Configure(pin int) error
	// Write drives a configured output pin to the given level.
	Write(pin int, level Level) error
	// Release hands every configured pin back to the system.
	Release() error
}

type Backend string

const (
	BackendPeriph Backend = "periph"
	BackendMemory Backend = "memory"
)

// NewDriver creates the driver for the configured backend.
func NewDriver(backend Backend, logger *zap.Logger) (Driver, error) {
	switch backend {
	case BackendPeriph:
		return NewPeriphDriver(logger)
	case BackendMemory:
		logger.Warn("Using in-memory GPIO driver, no hardware will be driven")
		return NewMemoryDriver(logger), nil
	default:
		return nil, fmt.Errorf("unknown gpio backend: %q", backend)
	}
}
