package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenMotorControl/internal/config"
	"github.com/KevinKickass/OpenMotorControl/internal/motor"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	Vehicle          string `json:"vehicle,omitempty"`
	GPIOBackend      string `json:"gpio_backend"`
	ConnectedClients int    `json:"connected_clients"`
}

type LifecycleManager interface {
	Config() *config.Config
	MotorController() *motor.Controller
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
