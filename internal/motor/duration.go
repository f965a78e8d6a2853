package motor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Limits is the duration policy in seconds.
type Limits struct {
	Drive float64 `json:"drive"`
	Turn  float64 `json:"turn"`
	Max   float64 `json:"max"`
}

func DefaultLimits() Limits {
	return Limits{Drive: 2.0, Turn: 1.0, Max: 5.0}
}

func (l Limits) Validate() error {
	for name, v := range map[string]float64{"drive": l.Drive, "turn": l.Turn, "max": l.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s duration must be a positive number of seconds, got %v", name, v)
		}
	}
	if l.Drive > l.Max || l.Turn > l.Max {
		return fmt.Errorf("default durations (drive %vs, turn %vs) must not exceed max %vs", l.Drive, l.Turn, l.Max)
	}
	return nil
}

// Default returns the command-class default duration.
func (l Limits) Default(cmd Command) float64 {
	switch cmd {
	case CommandLeft, CommandRight:
		return l.Turn
	default:
		return l.Drive
	}
}

// Resolve turns a requested duration into seconds. A nil request resolves
// to def. Accepted values are used as-is.
func (l Limits) Resolve(requested any, def float64) (float64, error) {
	if requested == nil {
		return def, nil
	}

	value, ok := toFloat(requested)
	if !ok {
		return 0, newError(ErrInvalidDuration, "Duration must be a number")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, newError(ErrInvalidDuration, "Duration must be finite")
	}
	if value <= 0 {
		return 0, newError(ErrInvalidDuration, "Duration must be positive")
	}
	if value > l.Max {
		return 0, newError(ErrInvalidDuration,
			fmt.Sprintf("Duration must be <= %s seconds", strconv.FormatFloat(l.Max, 'f', -1, 64)))
	}
	return value, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return parseFloat(string(n))
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
}

// parseFloat accepts out-of-range literals as ±Inf so they are reported
// as non-finite rather than as non-numeric.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
