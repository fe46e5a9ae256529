// Package safety evaluates the storage and travel conditions that end a
// mining cycle. Its checks are pure predicates; acting on them is up to the
// caller.
package safety

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/gwillem/digrig/pkg/device"
)

// DefaultFillThreshold is the fill ratio above which a container counts as full.
const DefaultFillThreshold = 0.95

// Verdict is the outcome of one safety evaluation.
type Verdict struct {
	StorageFull     bool
	TravelExhausted bool
	Fills           []device.Fill
	Travels         []device.Travel
}

// Monitor checks storage fill and actuator travel.
type Monitor struct {
	threshold float64
}

// New creates a monitor. A threshold outside (0, 1] falls back to the default.
func New(threshold float64) *Monitor {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFillThreshold
	}
	return &Monitor{threshold: threshold}
}

// Threshold returns the fill ratio threshold.
func (m *Monitor) Threshold() float64 {
	return m.threshold
}

// StorageFull returns true if every container's fill ratio exceeds the
// threshold. No containers means not full.
func (m *Monitor) StorageFull(fills []device.Fill) bool {
	if len(fills) == 0 {
		return false
	}
	return lo.EveryBy(fills, func(f device.Fill) bool {
		return f.Ratio() > m.threshold
	})
}

// TravelExhausted returns true if every actuator is at or beyond its maximum
// travel. No actuators means not exhausted.
func (m *Monitor) TravelExhausted(travels []device.Travel) bool {
	if len(travels) == 0 {
		return false
	}
	return lo.EveryBy(travels, device.Travel.AtMax)
}

// Evaluate reads every container and actuator and applies both checks.
// A bad reading fails the whole evaluation with device.ErrTelemetry in the
// chain; callers treat that as a skipped cycle.
func (m *Monitor) Evaluate(containers []device.StorageContainer, actuators []device.LinearActuator) (Verdict, error) {
	fills, err := ReadFills(containers)
	if err != nil {
		return Verdict{}, err
	}
	travels, err := ReadTravels(actuators)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		StorageFull:     m.StorageFull(fills),
		TravelExhausted: m.TravelExhausted(travels),
		Fills:           fills,
		Travels:         travels,
	}, nil
}

// ReadFills reads and validates every container's fill.
func ReadFills(containers []device.StorageContainer) ([]device.Fill, error) {
	fills := make([]device.Fill, 0, len(containers))
	for _, c := range containers {
		f, err := c.Fill()
		if err == nil {
			err = f.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", c.Name(), err)
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// ReadTravels reads and validates every actuator's travel.
func ReadTravels(actuators []device.LinearActuator) ([]device.Travel, error) {
	travels := make([]device.Travel, 0, len(actuators))
	for _, a := range actuators {
		t, err := a.Travel()
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", a.Name(), err)
		}
		travels = append(travels, t)
	}
	return travels, nil
}
