package motor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMotorControl/internal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(time.Duration) {}

func newTestController(t *testing.T, opts ...Option) (*Controller, *gpio.MemoryDriver) {
	t.Helper()
	driver := gpio.NewMemoryDriver(nil)
	opts = append([]Option{WithSleep(noSleep)}, opts...)
	ctrl, err := NewController(driver, DefaultPinLayout(), opts...)
	require.NoError(t, err)
	driver.ResetWrites()
	return ctrl, driver
}

func assertAllLow(t *testing.T, driver *gpio.MemoryDriver, layout PinLayout) {
	t.Helper()
	for _, pin := range layout.All() {
		assert.Equal(t, gpio.Low, driver.Level(pin), "pin %d (%s)", pin, layout.Name(pin))
	}
}

func firstHigh(writes []gpio.Write) (int, bool) {
	for _, w := range writes {
		if w.Level == gpio.High {
			return w.Pin, true
		}
	}
	return 0, false
}

func TestNewController_ConfiguresPinsLow(t *testing.T) {
	driver := gpio.NewMemoryDriver(nil)
	layout := DefaultPinLayout()

	ctrl, err := NewController(driver, layout)
	require.NoError(t, err)

	for _, pin := range layout.All() {
		assert.True(t, driver.Configured(pin))
	}
	assertAllLow(t, driver, layout)
	assert.Equal(t, StateActive, ctrl.Status().State)
	assert.Len(t, ctrl.Status().Pins, 4)
}

func TestNewController_ConfigureFailure(t *testing.T) {
	driver := gpio.NewMemoryDriver(nil)
	driver.FailConfigure(22, errors.New("pin busy"))

	ctrl, err := NewController(driver, DefaultPinLayout())
	assert.Nil(t, ctrl)
	assert.ErrorIs(t, err, ErrHardware)
	assert.True(t, driver.Released())
}

func TestNewController_RejectsDuplicatePins(t *testing.T) {
	layout := PinLayout{Forward: 17, Backward: 17, Left: 22, Right: 23}

	_, err := NewController(gpio.NewMemoryDriver(nil), layout)
	assert.ErrorIs(t, err, ErrPinLayout)
}

func TestNewController_RejectsBadLimits(t *testing.T) {
	_, err := NewController(gpio.NewMemoryDriver(nil), DefaultPinLayout(),
		WithLimits(Limits{Drive: 6, Turn: 1, Max: 5}))
	assert.Error(t, err)
}

func TestController_Execute_FirstHighPin(t *testing.T) {
	layout := DefaultPinLayout()
	tests := []struct {
		command string
		want    int
		message string
	}{
		{"FORWARD", layout.Forward, "Moving forward"},
		{"BACKWARD", layout.Backward, "Moving backward"},
		{"LEFT", layout.Left, "Turning left"},
		{"RIGHT", layout.Right, "Turning right"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			ctrl, driver := newTestController(t)

			result, err := ctrl.Execute(tt.command, 0.01)
			require.NoError(t, err)
			assert.Equal(t, tt.message, result.Message)

			writes := driver.Writes()
			pin, ok := firstHigh(writes)
			require.True(t, ok)
			assert.Equal(t, tt.want, pin)

			highs := 0
			for _, w := range writes {
				if w.Level == gpio.High {
					highs++
				}
			}
			assert.Equal(t, 1, highs)

			assertAllLow(t, driver, layout)
		})
	}
}

func TestController_Execute_ForwardScenario(t *testing.T) {
	var slept []time.Duration
	ctrl, driver := newTestController(t, WithSleep(func(d time.Duration) {
		slept = append(slept, d)
	}))
	layout := ctrl.Layout()

	result, err := ctrl.Execute("forward", 0.01)
	require.NoError(t, err)
	assert.Equal(t, "Moving forward", result.Message)
	require.NotNil(t, result.Duration)
	assert.Equal(t, 0.01, *result.Duration)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, slept)

	for _, w := range driver.Writes() {
		if w.Pin == layout.Backward {
			assert.Equal(t, gpio.Low, w.Level)
		}
	}
	writes := driver.Writes()
	assert.Equal(t, gpio.Write{Pin: layout.Forward, Level: gpio.High}, writes[0])
	assertAllLow(t, driver, layout)
}

func TestController_Execute_DefaultDurations(t *testing.T) {
	var slept []time.Duration
	ctrl, _ := newTestController(t, WithSleep(func(d time.Duration) {
		slept = append(slept, d)
	}))

	result, err := ctrl.Execute("backward", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *result.Duration)

	result, err = ctrl.Execute("  right ", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *result.Duration)

	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, slept)
}

func TestController_Execute_Stop(t *testing.T) {
	ctrl, driver := newTestController(t)

	result, err := ctrl.Execute("STOP", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Motors stopped", result.Message)
	assert.Nil(t, result.Duration)
	assertAllLow(t, driver, ctrl.Layout())
	assert.Len(t, driver.Writes(), 4)
}

func TestController_Execute_InvalidInput(t *testing.T) {
	ctrl, driver := newTestController(t)

	_, err := ctrl.Execute("   ", nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, "Command is required", Message(err))

	_, err = ctrl.Execute("spin", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, "Unknown command", Message(err))

	result, err := ctrl.Execute("forward", 9)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Equal(t, CommandForward, result.Command)

	assert.Empty(t, driver.Writes())
}

func TestController_Execute_ReportsParsedCommand(t *testing.T) {
	ctrl, _ := newTestController(t)

	result, err := ctrl.Execute(" left ", 0.01)
	require.NoError(t, err)
	assert.Equal(t, CommandLeft, result.Command)

	result, err = ctrl.Execute("stop", nil)
	require.NoError(t, err)
	assert.Equal(t, CommandStop, result.Command)

	result, err = ctrl.Execute("spin", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Empty(t, result.Command)
}

func TestController_Stop_WithoutMotion(t *testing.T) {
	ctrl, driver := newTestController(t)

	for i := 0; i < 3; i++ {
		result, err := ctrl.Stop()
		require.NoError(t, err)
		assert.Equal(t, "Motors stopped", result.Message)
	}
	assertAllLow(t, driver, ctrl.Layout())
}

func TestController_Shutdown(t *testing.T) {
	ctrl, driver := newTestController(t)

	require.NoError(t, ctrl.Shutdown())
	assert.True(t, driver.Released())
	assertAllLow(t, driver, ctrl.Layout())
	assert.Equal(t, StateShutDown, ctrl.Status().State)

	writes := len(driver.Writes())

	_, err := ctrl.Execute("FORWARD", nil)
	assert.ErrorIs(t, err, ErrShutDown)
	assert.Equal(t, "Controller is shut down", Message(err))

	_, err = ctrl.Execute("spin", nil)
	assert.ErrorIs(t, err, ErrShutDown)

	_, err = ctrl.Stop()
	assert.ErrorIs(t, err, ErrShutDown)

	assert.NoError(t, ctrl.Shutdown())
	assert.Len(t, driver.Writes(), writes)
}

func TestController_Shutdown_ReleaseFailure(t *testing.T) {
	ctrl, driver := newTestController(t)
	driver.FailRelease(errors.New("device busy"))

	err := ctrl.Shutdown()
	assert.ErrorIs(t, err, ErrHardware)
	assert.Equal(t, StateShutDown, ctrl.Status().State)
	assertAllLow(t, driver, ctrl.Layout())
}

func TestController_WriteFailureStopsMotors(t *testing.T) {
	ctrl, driver := newTestController(t)
	layout := ctrl.Layout()
	driver.FailWrite(layout.Backward, errors.New("short"))

	_, err := ctrl.Execute("FORWARD", 0.01)
	assert.ErrorIs(t, err, ErrHardware)
	assert.Equal(t, gpio.Low, driver.Level(layout.Forward))
	assert.False(t, ctrl.Status().Busy)
}

func TestController_ConcurrentCommandsNeverOverlap(t *testing.T) {
	ctrl, driver := newTestController(t, WithSleep(time.Sleep))
	layout := ctrl.Layout()

	commands := []string{"FORWARD", "BACKWARD", "LEFT", "RIGHT", "STOP", "FORWARD", "LEFT", "STOP"}

	var wg sync.WaitGroup
	for _, cmd := range commands {
		wg.Add(1)
		go func(cmd string) {
			defer wg.Done()
			_, err := ctrl.Execute(cmd, 0.005)
			assert.NoError(t, err)
		}(cmd)
	}
	wg.Wait()

	levels := make(map[int]gpio.Level)
	for _, w := range driver.Writes() {
		levels[w.Pin] = w.Level
		high := 0
		for _, l := range levels {
			if l == gpio.High {
				high++
			}
		}
		assert.LessOrEqual(t, high, 1)
	}
	assertAllLow(t, driver, layout)
	assert.Equal(t, uint64(len(commands)), ctrl.Status().CommandsExecuted)
}

func TestController_ShutdownWaitsForMotion(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ctrl, driver := newTestController(t, WithSleep(func(time.Duration) {
		close(entered)
		<-release
	}))

	motionDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Execute("LEFT", nil)
		motionDone <- err
	}()
	<-entered

	status := ctrl.Status()
	assert.True(t, status.Busy)
	assert.Equal(t, CommandLeft, status.Command)
	assert.Equal(t, gpio.High, status.Pins["left"])

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- ctrl.Shutdown() }()

	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned while a motion was running")
	case <-time.After(20 * time.Millisecond):
	}
	assert.False(t, driver.Released())

	close(release)
	require.NoError(t, <-motionDone)
	require.NoError(t, <-shutdownDone)

	assert.True(t, driver.Released())
	assertAllLow(t, driver, ctrl.Layout())
}

func TestController_Events(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	ctrl, _ := newTestController(t, WithListener(ListenerFunc(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})))

	_, err := ctrl.Execute("RIGHT", 0.5)
	require.NoError(t, err)
	_, err = ctrl.Stop()
	require.NoError(t, err)
	require.NoError(t, ctrl.Shutdown())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.Equal(t, EventMotionStarted, events[0].Type)
	assert.Equal(t, "right", events[0].Pin)
	assert.Equal(t, 0.5, events[0].Duration)
	assert.NotEmpty(t, events[0].CommandID)
	assert.Equal(t, EventMotionCompleted, events[1].Type)
	assert.Equal(t, events[0].CommandID, events[1].CommandID)
	assert.Equal(t, EventMotorsStopped, events[2].Type)
	assert.Equal(t, EventShutdown, events[3].Type)
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("  lEfT\n")
	require.NoError(t, err)
	assert.Equal(t, CommandLeft, cmd)

	_, err = ParseCommand("")
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = ParseCommand("jump")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
