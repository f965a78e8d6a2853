package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/config"
	"github.com/KevinKickass/OpenMotorControl/internal/system"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// service is the part of the lifecycle manager main drives.
type service interface {
	Errors() <-chan error
	Done() <-chan struct{}
	Shutdown(ctx context.Context) error
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "path to the YAML config file (empty for defaults)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	// Registered before the shutdown defer so signals stay captured until
	// the pins are low.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise motor controller", zap.Error(err))
		return 1
	}
	defer shutdown(lifecycle, sigChan, cfg.Server.ShutdownTimeout, logger)

	if err := lifecycle.Start(); err != nil {
		logger.Error("Failed to start system", zap.Error(err))
		return 1
	}

	logger.Info("Motor control service started", zap.String("address", lifecycle.Addr()))

	return wait(lifecycle, sigChan, logger)
}

// wait blocks until a signal, a server failure or an API shutdown and
// returns the exit code.
func wait(svc service, sigChan <-chan os.Signal, logger *zap.Logger) int {
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-svc.Errors():
		logger.Error("Server stopped unexpectedly", zap.Error(err))
		return 1
	case <-svc.Done():
		logger.Info("Shutdown requested over the API")
	}
	return 0
}

// shutdown runs the lifecycle shutdown and swallows further signals until it
// has returned.
func shutdown(svc service, sigChan <-chan os.Signal, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- svc.Shutdown(ctx) }()

	for {
		select {
		case sig := <-sigChan:
			logger.Warn("Shutdown already in progress", zap.String("signal", sig.String()))
		case err := <-errChan:
			if err != nil {
				logger.Error("Shutdown failed", zap.Error(err))
			}
			return
		}
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}
