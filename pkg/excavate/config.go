package excavate

import (
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/digrig/pkg/pacing"
	"github.com/gwillem/digrig/pkg/safety"
)

// Config holds the excavation cycle parameters.
type Config struct {
	Tag           string  `json:"tag"`            // name tag devices must carry
	RotationSpeed float64 `json:"rotation_speed"` // rpm
	Increment     float64 `json:"increment"`      // extension per step
	ExtendRate    float64 `json:"extend_rate"`    // extension velocity (K when scale_rate is set)
	ScaleRate     bool    `json:"scale_rate"`     // divide extend_rate by twice the actuator count
	RetractRate   float64 `json:"retract_rate"`   // retraction speed, positive
	FillThreshold float64 `json:"fill_threshold"`
	CycleHz       float64 `json:"cycle_hz"` // maximum state evaluations per second

	StopOnStorageFull bool `json:"stop_on_storage_full"`
	StopOnMaxTravel   bool `json:"stop_on_max_travel"`
}

// DefaultConfig returns the stepped-extension setup: finish the cycle when
// storage fills, hold at depth for one rotation when travel runs out.
func DefaultConfig() Config {
	return Config{
		Tag:               "[Mining]",
		RotationSpeed:     0.5,
		Increment:         0.5,
		ExtendRate:        0.1,
		RetractRate:       1.0,
		FillThreshold:     safety.DefaultFillThreshold,
		CycleHz:           10,
		StopOnStorageFull: true,
	}
}

// CycleInterval returns the minimum time between state evaluations.
func (c Config) CycleInterval() time.Duration {
	if c.CycleHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.CycleHz)
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := pacing.StepInterval(c.RotationSpeed); err != nil {
		errs = append(errs, fmt.Errorf("rotation_speed: %w", err))
	}
	if c.Increment <= 0 {
		errs = append(errs, fmt.Errorf("increment must be positive, got %v", c.Increment))
	}
	if c.ExtendRate <= 0 {
		errs = append(errs, fmt.Errorf("extend_rate must be positive, got %v", c.ExtendRate))
	}
	if c.RetractRate <= 0 {
		errs = append(errs, fmt.Errorf("retract_rate must be positive, got %v", c.RetractRate))
	}
	if c.FillThreshold <= 0 || c.FillThreshold > 1 {
		errs = append(errs, fmt.Errorf("fill_threshold must be in (0, 1], got %v", c.FillThreshold))
	}
	if c.CycleHz < 0 {
		errs = append(errs, fmt.Errorf("cycle_hz must not be negative, got %v", c.CycleHz))
	}
	return errors.Join(errs...)
}
