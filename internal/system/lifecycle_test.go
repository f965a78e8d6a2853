package system

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/config"
	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.HTTPPort = 0
	cfg.GPIO.Backend = string(gpio.BackendMemory)
	return cfg
}

func TestLifecycle_StartCommandShutdown(t *testing.T) {
	lm, err := NewLifecycleManager(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, lm.Start())
	assert.Equal(t, StateRunning, lm.State())

	body, _ := json.Marshal(map[string]any{"cmd": "forward", "duration": 0.01})
	resp, err := http.Post("http://"+lm.Addr()+"/command", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "Moving forward", payload["message"])
	assert.Equal(t, 0.01, payload["duration"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, lm.Shutdown(ctx))
	require.NoError(t, lm.Shutdown(ctx))

	select {
	case <-lm.Done():
	default:
		t.Fatal("Done not closed after shutdown")
	}
	assert.Equal(t, StateStopped, lm.State())

	driver := lm.Driver().(*gpio.MemoryDriver)
	assert.True(t, driver.Released())
	for _, pin := range motor.DefaultPinLayout().All() {
		assert.Equal(t, gpio.Low, driver.Level(pin))
	}

	_, err = lm.MotorController().Execute("FORWARD", nil)
	assert.ErrorIs(t, err, motor.ErrShutDown)
}

func TestLifecycle_ShutdownWithoutStart(t *testing.T) {
	lm, err := NewLifecycleManager(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, lm.Shutdown(context.Background()))
	assert.True(t, lm.Driver().(*gpio.MemoryDriver).Released())
	assert.Equal(t, motor.StateShutDown, lm.MotorController().Status().State)
}

func TestLifecycle_VehicleProfileOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	profile := `
vehicle:
  id: buggy
pins:
  forward: 5
  backward: 6
  left: 13
  right: 19
durations:
  drive_seconds: 1.5
  max_seconds: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buggy.yaml"), []byte(profile), 0o644))

	cfg := testConfig(t)
	cfg.Vehicle.Profile = "buggy"
	cfg.Vehicle.SearchPaths = []string{dir}

	lm, err := NewLifecycleManager(cfg, zap.NewNop())
	require.NoError(t, err)
	defer lm.Shutdown(context.Background())

	ctrl := lm.MotorController()
	assert.Equal(t, motor.PinLayout{Forward: 5, Backward: 6, Left: 13, Right: 19}, ctrl.Layout())
	assert.Equal(t, motor.Limits{Drive: 1.5, Turn: 1, Max: 3}, ctrl.Limits())
	assert.Equal(t, "buggy", lm.GetCurrentStatus().Vehicle)
	assert.Equal(t, "memory", lm.GetCurrentStatus().GPIOBackend)
}

func TestLifecycle_MissingProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vehicle.Profile = "nope"
	cfg.Vehicle.SearchPaths = []string{t.TempDir()}

	_, err := NewLifecycleManager(cfg, zap.NewNop())
	assert.Error(t, err)
}
