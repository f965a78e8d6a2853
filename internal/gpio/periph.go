package gpio

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver drives Raspberry Pi header pins through periph.io.
type PeriphDriver struct {
	mu     sync.Mutex
	pins   map[int]pgpio.PinIO
	logger *zap.Logger
}

func NewPeriphDriver(logger *zap.Logger) (*PeriphDriver, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}

	logger.Info("periph host initialised",
		zap.Int("drivers_loaded", len(state.Loaded)),
		zap.Int("drivers_failed", len(state.Failed)))

	return &PeriphDriver{
		pins:   make(map[int]pgpio.PinIO),
		logger: logger,
	}, nil
}

func (d *PeriphDriver) Configure(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pins == nil {
		return ErrReleased
	}

	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return fmt.Errorf("gpio pin %s not found", name)
	}

	if err := p.Out(pgpio.Low); err != nil {
		return fmt.Errorf("failed to configure %s as output: %w", name, err)
	}

	d.pins[pin] = p
	d.logger.Debug("GPIO pin configured", zap.String("pin", name))
	return nil
}

func (d *PeriphDriver) Write(pin int, level Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pins == nil {
		return ErrReleased
	}

	p, ok := d.pins[pin]
	if !ok {
		return fmt.Errorf("GPIO%d: %w", pin, ErrNotConfigured)
	}

	out := pgpio.Low
	if level == High {
		out = pgpio.High
	}
	if err := p.Out(out); err != nil {
		return fmt.Errorf("failed to write GPIO%d: %w", pin, err)
	}
	return nil
}

// Release drives every pin low and switches it back to a floating input,
// the state the pins had before the driver touched them.
func (d *PeriphDriver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pins == nil {
		return nil
	}

	var errs []error
	for num, p := range d.pins {
		if err := p.Out(pgpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("GPIO%d: %w", num, err))
			continue
		}
		if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("GPIO%d: %w", num, err))
		}
	}
	d.pins = nil

	return errors.Join(errs...)
}
