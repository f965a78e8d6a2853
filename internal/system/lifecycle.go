package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenMotorControl/internal/api/rest"
	"github.com/KevinKickass/OpenMotorControl/internal/api/websocket"
	"github.com/KevinKickass/OpenMotorControl/internal/config"
	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
	"github.com/KevinKickass/OpenMotorControl/internal/interfaces"
	"github.com/KevinKickass/OpenMotorControl/internal/metrics"
	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/KevinKickass/OpenMotorControl/internal/vehicle"
	"go.uber.org/zap"
)

// LifecycleManager owns the controller and everything serving it, and
// guarantees the controller is shut down exactly once.
type LifecycleManager struct {
	config     *config.Config
	driver     gpio.Driver
	controller *motor.Controller
	wsHub      *websocket.Hub
	metrics    *metrics.Collector
	vehicleID  string
	logger     *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewLifecycleManager opens the GPIO backend and constructs the motor
// controller. An error here means the hardware is unusable.
func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	layout := cfg.Motor.Layout()
	limits := cfg.Motor.Limits()
	var vehicleID string

	if cfg.Vehicle.Profile != "" {
		loader, err := vehicle.NewProfileLoader(cfg.Vehicle.SearchPaths)
		if err != nil {
			return nil, err
		}
		profile, err := loader.Load(cfg.Vehicle.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to load vehicle profile: %w", err)
		}
		layout = vehicle.Layout(profile)
		limits = vehicle.Limits(profile, limits)
		vehicleID = profile.Vehicle.ID

		logger.Info("Vehicle profile loaded",
			zap.String("vehicle", vehicleID),
			zap.String("model", profile.Vehicle.Model))
	}

	driver, err := gpio.NewDriver(gpio.Backend(cfg.GPIO.Backend), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio backend: %w", err)
	}

	wsHub := websocket.NewHub(logger)
	collector := metrics.NewCollector()

	controller, err := motor.NewController(driver, layout,
		motor.WithLimits(limits),
		motor.WithLogger(logger.Named("motor")),
		motor.WithListener(wsHub),
		motor.WithListener(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise motor controller: %w", err)
	}
	wsHub.SetStatusProvider(controller)

	lm := &LifecycleManager{
		config:       cfg,
		driver:       driver,
		controller:   controller,
		wsHub:        wsHub,
		metrics:      collector,
		vehicleID:    vehicleID,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}
	lm.restServer = rest.NewServer(cfg, lm, logger, wsHub, collector)

	return lm, nil
}

// Start starts the event hub and the REST API
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting motor control service")

	go lm.wsHub.Run()

	if err := lm.restServer.Start(); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.String("address", lm.restServer.Addr()),
		zap.String("gpio_backend", lm.config.GPIO.Backend))

	return nil
}

// Shutdown stops the motors first, then the servers. Safe to call from
// several goroutines; only the first call does the work. Controller
// release failures are logged and do not fail the shutdown.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		if err := lm.controller.Shutdown(); err != nil {
			lm.logger.Error("Motor controller shutdown incomplete", zap.Error(err))
		}

		var errs []error
		if err := lm.restServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rest api shutdown failed: %w", err))
		}
		lm.wsHub.Stop()

		lm.shutdownErr = errors.Join(errs...)
		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return lm.shutdownErr
}

// Done is closed once Shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

// Errors delivers fatal serve errors from the REST API.
func (lm *LifecycleManager) Errors() <-chan error {
	return lm.restServer.Errors()
}

func (lm *LifecycleManager) Addr() string {
	return lm.restServer.Addr()
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected system state change", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{
		State:            lm.State().String(),
		Vehicle:          lm.vehicleID,
		GPIOBackend:      lm.config.GPIO.Backend,
		ConnectedClients: lm.wsHub.GetClientCount(),
	}
}

// MotorController returns the motor controller
func (lm *LifecycleManager) MotorController() *motor.Controller {
	return lm.controller
}

// Driver returns the GPIO driver backing the controller
func (lm *LifecycleManager) Driver() gpio.Driver {
	return lm.driver
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
