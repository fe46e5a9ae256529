package device

import (
	"errors"
	"fmt"
	"math"
)

// ErrTelemetry marks an out-of-range or unreadable device report.
var ErrTelemetry = errors.New("telemetry anomaly")

// travelEpsilon absorbs float noise when comparing reported positions to bounds.
const travelEpsilon = 1e-6

// Travel is a linear actuator's reported position and bounds.
type Travel struct {
	Current float64
	Min     float64
	Max     float64
	Limit   float64 // extension target
}

// Validate reports ErrTelemetry if the reading cannot be trusted.
func (t Travel) Validate() error {
	for _, v := range []float64{t.Current, t.Min, t.Max, t.Limit} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite travel value", ErrTelemetry)
		}
	}
	if t.Min > t.Max {
		return fmt.Errorf("%w: travel min %.3f above max %.3f", ErrTelemetry, t.Min, t.Max)
	}
	return nil
}

// AtMax returns true if the actuator is at or beyond its maximum travel.
func (t Travel) AtMax() bool {
	return t.Current >= t.Max-travelEpsilon
}

// AtMin returns true if the actuator is fully retracted.
func (t Travel) AtMin() bool {
	return t.Current <= t.Min+travelEpsilon
}

// Extension returns the position as a fraction of the travel range [0, 1].
func (t Travel) Extension() float64 {
	span := t.Max - t.Min
	if span <= 0 {
		return 0
	}
	return (t.Current - t.Min) / span
}

// Fill is a storage container's stored and maximum volume.
type Fill struct {
	Current float64
	Max     float64
}

// Validate reports ErrTelemetry if the reading cannot be trusted.
func (f Fill) Validate() error {
	if math.IsNaN(f.Current) || math.IsInf(f.Current, 0) || math.IsNaN(f.Max) || math.IsInf(f.Max, 0) {
		return fmt.Errorf("%w: non-finite volume", ErrTelemetry)
	}
	if f.Max <= 0 {
		return fmt.Errorf("%w: max volume %.3f", ErrTelemetry, f.Max)
	}
	if f.Current < 0 {
		return fmt.Errorf("%w: negative volume %.3f", ErrTelemetry, f.Current)
	}
	return nil
}

// Ratio returns stored volume over maximum volume.
func (f Fill) Ratio() float64 {
	if f.Max <= 0 {
		return 0
	}
	return f.Current / f.Max
}
