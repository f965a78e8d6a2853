package gpio

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Write is one recorded pin write.
type Write struct {
	Pin   int
	Level Level
}

// MemoryDriver keeps pin levels in memory and records every write.
// It backs dry runs on machines without GPIO and the tests.
type MemoryDriver struct {
	mu         sync.Mutex
	logger     *zap.Logger
	configured map[int]bool
	levels     map[int]Level
	writes     []Write
	released   bool

	configureErrs map[int]error
	writeErrs     map[int]error
	releaseErr    error
}

func NewMemoryDriver(logger *zap.Logger) *MemoryDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryDriver{
		logger:        logger,
		configured:    make(map[int]bool),
		levels:        make(map[int]Level),
		configureErrs: make(map[int]error),
		writeErrs:     make(map[int]error),
	}
}

// FailConfigure makes the next Configure calls for pin return err.
func (d *MemoryDriver) FailConfigure(pin int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configureErrs[pin] = err
}

// FailWrite makes writes to pin return err. A nil err clears the failure.
func (d *MemoryDriver) FailWrite(pin int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.writeErrs, pin)
		return
	}
	d.writeErrs[pin] = err
}

func (d *MemoryDriver) FailRelease(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseErr = err
}

func (d *MemoryDriver) Configure(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	if err := d.configureErrs[pin]; err != nil {
		return err
	}

	d.configured[pin] = true
	d.levels[pin] = Low
	return nil
}

func (d *MemoryDriver) Write(pin int, level Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	if !d.configured[pin] {
		return fmt.Errorf("GPIO%d: %w", pin, ErrNotConfigured)
	}
	if err := d.writeErrs[pin]; err != nil {
		return err
	}

	d.levels[pin] = level
	d.writes = append(d.writes, Write{Pin: pin, Level: level})
	d.logger.Debug("GPIO write",
		zap.Int("pin", pin),
		zap.Stringer("level", level))
	return nil
}

func (d *MemoryDriver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true
	return d.releaseErr
}

// Level returns the last level written to pin.
func (d *MemoryDriver) Level(pin int) Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin]
}

func (d *MemoryDriver) Configured(pin int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured[pin]
}

func (d *MemoryDriver) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

// Writes returns a copy of the write log in order.
func (d *MemoryDriver) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Write, len(d.writes))
	copy(out, d.writes)
	return out
}

func (d *MemoryDriver) ResetWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
}
