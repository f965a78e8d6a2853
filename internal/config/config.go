package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Motor   MotorConfig   `mapstructure:"motor"`
	GPIO    GPIOConfig    `mapstructure:"gpio"`
	Vehicle VehicleConfig `mapstructure:"vehicle"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MotorConfig struct {
	Pins          PinsConfig    `mapstructure:"pins"`
	DriveDuration time.Duration `mapstructure:"drive_duration"`
	TurnDuration  time.Duration `mapstructure:"turn_duration"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
}

// PinsConfig holds BCM pin numbers.
type PinsConfig struct {
	Forward  int `mapstructure:"forward"`
	Backward int `mapstructure:"backward"`
	Left     int `mapstructure:"left"`
	Right    int `mapstructure:"right"`
}

type GPIOConfig struct {
	Backend string `mapstructure:"backend"`
}

// VehicleConfig selects an optional vehicle profile. When Profile is set
// its pin layout and durations take precedence over the motor section.
type VehicleConfig struct {
	Profile     string   `mapstructure:"profile"`
	SearchPaths []string `mapstructure:"search_paths"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the YAML config at path. An empty path loads defaults and
// environment overrides only. Environment variables use the RCCAR_ prefix,
// e.g. RCCAR_SERVER_HTTP_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RCCAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	// long enough for a queued command behind a max-length motion
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	layout := motor.DefaultPinLayout()
	v.SetDefault("motor.pins.forward", layout.Forward)
	v.SetDefault("motor.pins.backward", layout.Backward)
	v.SetDefault("motor.pins.left", layout.Left)
	v.SetDefault("motor.pins.right", layout.Right)
	v.SetDefault("motor.drive_duration", "2s")
	v.SetDefault("motor.turn_duration", "1s")
	v.SetDefault("motor.max_duration", "5s")

	v.SetDefault("gpio.backend", string(gpio.BackendPeriph))

	v.SetDefault("vehicle.profile", "")
	v.SetDefault("vehicle.search_paths", []string{"profiles"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}

	switch gpio.Backend(c.GPIO.Backend) {
	case gpio.BackendPeriph, gpio.BackendMemory:
	default:
		return fmt.Errorf("gpio.backend must be %q or %q, got %q",
			gpio.BackendPeriph, gpio.BackendMemory, c.GPIO.Backend)
	}

	if err := c.Motor.Layout().Validate(); err != nil {
		return fmt.Errorf("motor.pins: %w", err)
	}
	if err := c.Motor.Limits().Validate(); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (m MotorConfig) Layout() motor.PinLayout {
	return motor.PinLayout{
		Forward:  m.Pins.Forward,
		Backward: m.Pins.Backward,
		Left:     m.Pins.Left,
		Right:    m.Pins.Right,
	}
}

func (m MotorConfig) Limits() motor.Limits {
	return motor.Limits{
		Drive: m.DriveDuration.Seconds(),
		Turn:  m.TurnDuration.Seconds(),
		Max:   m.MaxDuration.Seconds(),
	}
}
