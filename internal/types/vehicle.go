package types

type VehicleProfileDefinition struct {
	Vehicle   VehicleInfo       `json:"vehicle" yaml:"vehicle"`
	Pins      PinAssignment     `json:"pins" yaml:"pins"`
	Durations *DurationSettings `json:"durations,omitempty" yaml:"durations,omitempty"`
}

type VehicleInfo struct {
	ID          string `json:"id" yaml:"id"`
	Vendor      string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Model       string `json:"model,omitempty" yaml:"model,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PinAssignment maps motor directions to BCM pin numbers.
type PinAssignment struct {
	Forward  int `json:"forward" yaml:"forward"`
	Backward int `json:"backward" yaml:"backward"`
	Left     int `json:"left" yaml:"left"`
	Right    int `json:"right" yaml:"right"`
}

// DurationSettings in seconds. Zero fields fall back to the configured value.
type DurationSettings struct {
	DriveSeconds float64 `json:"drive_seconds,omitempty" yaml:"drive_seconds,omitempty"`
	TurnSeconds  float64 `json:"turn_seconds,omitempty" yaml:"turn_seconds,omitempty"`
	MaxSeconds   float64 `json:"max_seconds,omitempty" yaml:"max_seconds,omitempty"`
}
