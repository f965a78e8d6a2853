package vehicle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/KevinKickass/OpenMotorControl/internal/types"
	"gopkg.in/yaml.v3"
)

var ErrProfileNotFound = errors.New("vehicle profile not found")

var profileExtensions = []string{".json", ".yaml", ".yml"}

// ProfileLoader finds vehicle profiles by name across search paths.
// Loaded profiles are cached.
type ProfileLoader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewProfileLoader(searchPaths []string) (*ProfileLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &ProfileLoader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

func (l *ProfileLoader) Load(name string) (*types.VehicleProfileDefinition, error) {
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*types.VehicleProfileDefinition), nil
	}

	data, foundPath, err := l.find(name)
	if err != nil {
		return nil, err
	}

	if ext := filepath.Ext(foundPath); ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", foundPath, err)
		}
	}

	if err := l.validator.ValidateProfile(data); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	var profile types.VehicleProfileDefinition
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if err := Layout(&profile).Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", foundPath, err)
	}

	l.cache.Store(name, &profile)

	return &profile, nil
}

func (l *ProfileLoader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}

func (l *ProfileLoader) find(name string) ([]byte, string, error) {
	for _, searchPath := range l.searchPaths {
		for _, ext := range profileExtensions {
			fullPath := filepath.Join(searchPath, name+ext)
			data, err := os.ReadFile(fullPath)
			if err == nil {
				return data, fullPath, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("failed to read %s: %w", fullPath, err)
			}
		}
	}
	return nil, "", fmt.Errorf("%w: %s (searched in: %v)", ErrProfileNotFound, name, l.searchPaths)
}

// yamlToJSON re-encodes a YAML document as JSON so YAML profiles go
// through the same schema as JSON ones.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Layout converts the profile's pin assignment.
func Layout(p *types.VehicleProfileDefinition) motor.PinLayout {
	return motor.PinLayout{
		Forward:  p.Pins.Forward,
		Backward: p.Pins.Backward,
		Left:     p.Pins.Left,
		Right:    p.Pins.Right,
	}
}

// Limits overlays the profile's durations on base.
func Limits(p *types.VehicleProfileDefinition, base motor.Limits) motor.Limits {
	if p.Durations == nil {
		return base
	}
	if p.Durations.DriveSeconds > 0 {
		base.Drive = p.Durations.DriveSeconds
	}
	if p.Durations.TurnSeconds > 0 {
		base.Turn = p.Durations.TurnSeconds
	}
	if p.Durations.MaxSeconds > 0 {
		base.Max = p.Durations.MaxSeconds
	}
	return base
}
