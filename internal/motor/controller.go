package motor

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller owns the four motor pins. One mutex spans every pin mutation
// sequence, including the timed wait, so at most one motion runs at a time
// and Stop/Shutdown never interleave with a half-applied motion.
type Controller struct {
	driver    gpio.Driver
	layout    PinLayout
	limits    Limits
	sleep     func(time.Duration)
	logger    *zap.Logger
	listeners []Listener

	mu    sync.Mutex
	state State

	// statusMu guards the snapshot served by Status so readers never wait
	// behind a running motion.
	statusMu sync.RWMutex
	status   Status
}

type Option func(*Controller)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithSleep replaces the blocking wait used during a motion.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

func WithLimits(limits Limits) Option {
	return func(c *Controller) { c.limits = limits }
}

func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// NewController configures every pin as an output and drives it low.
// No controller is returned if the hardware cannot be configured.
func NewController(driver gpio.Driver, layout PinLayout, opts ...Option) (*Controller, error) {
	c := &Controller{
		driver: driver,
		layout: layout,
		limits: DefaultLimits(),
		sleep:  time.Sleep,
		logger: zap.NewNop(),
		state:  StateActive,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if err := c.limits.Validate(); err != nil {
		return nil, err
	}

	c.status = Status{
		State: StateActive,
		Pins:  make(map[string]gpio.Level, 4),
	}

	for _, pin := range layout.All() {
		if err := driver.Configure(pin); err != nil {
			c.releaseAfterFailure()
			return nil, hardwareError("Failed to configure "+layout.Name(pin)+" pin", err)
		}
		if err := c.writePin(pin, gpio.Low); err != nil {
			c.releaseAfterFailure()
			return nil, hardwareError("Failed to drive "+layout.Name(pin)+" pin low", err)
		}
	}

	c.logger.Info("Motor controller ready",
		zap.Int("forward_pin", layout.Forward),
		zap.Int("backward_pin", layout.Backward),
		zap.Int("left_pin", layout.Left),
		zap.Int("right_pin", layout.Right),
		zap.Float64("drive_duration", c.limits.Drive),
		zap.Float64("turn_duration", c.limits.Turn),
		zap.Float64("max_duration", c.limits.Max))

	return c, nil
}

func (c *Controller) releaseAfterFailure() {
	if err := c.driver.Release(); err != nil {
		c.logger.Warn("Failed to release GPIO after configuration error", zap.Error(err))
	}
}

// ParseCommand trims and upper-cases raw and checks it against the
// recognised command set.
func ParseCommand(raw string) (Command, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return "", newError(ErrInvalidCommand, "Command is required")
	}

	switch cmd := Command(normalized); cmd {
	case CommandForward, CommandBackward, CommandLeft, CommandRight, CommandStop:
		return cmd, nil
	default:
		return "", newError(ErrUnknownCommand, "Unknown command")
	}
}

// Execute runs one command. duration may be nil (command default), a number
// or a numeric string; it is ignored for STOP. The call blocks for the whole
// motion. Result.Command is set whenever command parsed, even on error.
func (c *Controller) Execute(command string, duration any) (Result, error) {
	if c.isShutDown() {
		return Result{}, errShutDown()
	}

	cmd, err := ParseCommand(command)
	if err != nil {
		return Result{}, err
	}

	var result Result
	switch cmd {
	case CommandStop:
		result, err = c.Stop()
	case CommandForward:
		result, err = c.drive(cmd, c.layout.Forward, c.layout.Backward, duration, "Moving forward")
	case CommandBackward:
		result, err = c.drive(cmd, c.layout.Backward, c.layout.Forward, duration, "Moving backward")
	case CommandLeft:
		result, err = c.drive(cmd, c.layout.Left, c.layout.Right, duration, "Turning left")
	default:
		result, err = c.drive(cmd, c.layout.Right, c.layout.Left, duration, "Turning right")
	}
	result.Command = cmd
	return result, err
}

// Stop drives every pin low.
func (c *Controller) Stop() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateShutDown {
		return Result{}, errShutDown()
	}

	if err := c.allLow(); err != nil {
		c.logger.Error("Failed to stop motors", zap.Error(err))
		return Result{}, hardwareError("Failed to stop motors", err)
	}

	c.recordCommand(CommandStop)
	c.emit(Event{Type: EventMotorsStopped, Command: CommandStop})
	c.logger.Info("Motors stopped")

	return Result{Command: CommandStop, Message: "Motors stopped"}, nil
}

// Shutdown drives every pin low and releases the hardware. It waits for any
// running motion to finish. Calling it again is a no-op. The controller is
// shut down even when the release fails; the error is returned for logging.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateShutDown {
		return nil
	}

	lowErr := c.allLow()
	releaseErr := c.driver.Release()

	c.state = StateShutDown
	c.statusMu.Lock()
	c.status.State = StateShutDown
	c.status.Busy = false
	c.statusMu.Unlock()

	c.emit(Event{Type: EventShutdown})

	if err := errors.Join(lowErr, releaseErr); err != nil {
		c.logger.Error("Motor controller shut down with errors", zap.Error(err))
		return hardwareError("Failed to release hardware", err)
	}

	c.logger.Info("Motor controller shut down")
	return nil
}

// Status returns a snapshot without waiting for a running motion.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	s := c.status
	s.Pins = make(map[string]gpio.Level, len(c.status.Pins))
	for name, level := range c.status.Pins {
		s.Pins[name] = level
	}
	if c.status.LastCommandAt != nil {
		at := *c.status.LastCommandAt
		s.LastCommandAt = &at
	}
	return s
}

func (c *Controller) Layout() PinLayout { return c.layout }

func (c *Controller) Limits() Limits { return c.limits }

func (c *Controller) drive(cmd Command, active, inactive int, requested any, message string) (Result, error) {
	duration, err := c.limits.Resolve(requested, c.limits.Default(cmd))
	if err != nil {
		return Result{}, err
	}

	id := uuid.New().String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateShutDown {
		return Result{}, errShutDown()
	}

	c.setBusy(cmd, id)
	defer c.clearBusy()

	logger := c.logger.With(
		zap.String("command_id", id),
		zap.String("command", string(cmd)),
		zap.Float64("duration", duration))

	if err := c.writePin(active, gpio.High); err != nil {
		return Result{}, c.abort(logger, err)
	}
	if err := c.writePin(inactive, gpio.Low); err != nil {
		return Result{}, c.abort(logger, err)
	}

	logger.Info("Motion started", zap.String("pin", c.layout.Name(active)))
	c.emit(Event{
		Type:      EventMotionStarted,
		CommandID: id,
		Command:   cmd,
		Pin:       c.layout.Name(active),
		Duration:  duration,
	})

	c.sleep(seconds(duration))

	if err := c.allLow(); err != nil {
		logger.Error("Failed to stop motors after motion", zap.Error(err))
		return Result{}, hardwareError("Failed to stop motors", err)
	}

	c.recordCommand(cmd)
	c.emit(Event{
		Type:      EventMotionCompleted,
		CommandID: id,
		Command:   cmd,
		Duration:  duration,
	})
	logger.Info("Motion completed")

	return Result{Command: cmd, Message: message, Duration: &duration}, nil
}

// abort forces the pins low after a failed write. Must hold c.mu.
func (c *Controller) abort(logger *zap.Logger, cause error) error {
	logger.Error("Pin write failed, stopping motors", zap.Error(cause))
	if err := c.allLow(); err != nil {
		logger.Error("Failed to stop motors after write failure", zap.Error(err))
	}
	return hardwareError("Failed to drive motor pins", cause)
}

// allLow writes low to every pin, continuing past failures. Must hold c.mu.
func (c *Controller) allLow() error {
	var errs []error
	for _, pin := range c.layout.All() {
		if err := c.writePin(pin, gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) writePin(pin int, level gpio.Level) error {
	if err := c.driver.Write(pin, level); err != nil {
		return err
	}
	c.statusMu.Lock()
	c.status.Pins[c.layout.Name(pin)] = level
	c.statusMu.Unlock()
	return nil
}

func (c *Controller) isShutDown() bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status.State == StateShutDown
}

func (c *Controller) setBusy(cmd Command, id string) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.Busy = true
	c.status.Command = cmd
	c.status.CommandID = id
}

func (c *Controller) clearBusy() {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.Busy = false
	c.status.Command = ""
	c.status.CommandID = ""
}

func (c *Controller) recordCommand(cmd Command) {
	now := time.Now()
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.LastCommand = cmd
	c.status.LastCommandAt = &now
	c.status.CommandsExecuted++
}

func (c *Controller) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	for _, l := range c.listeners {
		l.OnEvent(ev)
	}
}
