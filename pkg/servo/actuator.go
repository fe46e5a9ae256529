package servo

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/digrig/pkg/device"
)

// Actuator is a linear actuator moved by position servos.
//
// Servos move at their own speed, so only the sign of the commanded velocity
// is used: positive extends to the limit, negative retracts to Min and zero
// holds the current position.
type Actuator struct {
	name     string
	bus      *Bus
	group    *feetech.ServoGroup
	cal      Calibration
	min, max float64

	mu       sync.Mutex
	enabled  bool
	velocity float64
	limit    float64
}

// NewActuator creates a linear actuator whose calibrated servo range spans
// travel [min, max].
func NewActuator(bus *Bus, name string, cal Calibration, min, max float64) *Actuator {
	return &Actuator{
		name:  name,
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus.bus, cal.MotorIDs()...),
		cal:   cal,
		min:   min,
		max:   max,
		limit: min,
	}
}

func (a *Actuator) Name() string { return a.name }
func (a *Actuator) Kind() device.Kind { return device.KindLinearActuator }

// SetEnabled switches servo torque.
func (a *Actuator) SetEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.bus.call(func(ctx context.Context) error {
		if enabled {
			return a.group.EnableAll(ctx)
		}
		return a.group.DisableAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("%s: set torque: %w", a.name, err)
	}
	a.enabled = enabled
	return a.drive()
}

// SetVelocity sets the direction of motion.
func (a *Actuator) SetVelocity(velocity float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.velocity = velocity
	return a.drive()
}

// SetLimit sets the extension target, clamped to the travel range.
func (a *Actuator) SetLimit(limit float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = min(max(limit, a.min), a.max)
	return a.drive()
}

// Travel reads the servo positions and returns the mean extension.
func (a *Actuator) Travel() (device.Travel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.fraction()
	if err != nil {
		return device.Travel{}, err
	}
	return device.Travel{
		Current: a.min + f*(a.max-a.min),
		Min:     a.min,
		Max:     a.max,
		Limit:   a.limit,
	}, nil
}

func (a *Actuator) fraction() (float64, error) {
	var raw map[int]int
	err := a.bus.call(func(ctx context.Context) error {
		positions, err := a.group.Positions(ctx)
		if err != nil {
			return err
		}
		raw = make(map[int]int, len(positions))
		for id, pos := range positions {
			raw[id] = pos
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: read positions: %w", a.name, err)
	}

	f, ok := a.cal.Mean(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s: no servo positions", device.ErrTelemetry, a.name)
	}
	return f, nil
}

// drive commands the servos toward the target implied by velocity and limit.
// Callers hold a.mu.
func (a *Actuator) drive() error {
	if !a.enabled {
		return nil
	}

	target, hold := driveTarget(a.velocity, a.limit, a.min, a.max)
	if hold {
		f, err := a.fraction()
		if err != nil {
			return err
		}
		target = f
	}

	positions := make(feetech.PositionMap, len(a.cal))
	for _, mc := range a.cal {
		positions[mc.ID] = mc.Denormalize(target)
	}
	err := a.bus.call(func(ctx context.Context) error {
		return a.group.SetPositions(ctx, positions)
	})
	if err != nil {
		return fmt.Errorf("%s: write positions: %w", a.name, err)
	}
	return nil
}

// driveTarget picks the servo fraction for a commanded velocity. hold is true
// when velocity is zero and the servos should stay where they are.
func driveTarget(velocity, limit, min, max float64) (target float64, hold bool) {
	switch {
	case velocity > 0:
		return extensionFraction(limit, min, max), false
	case velocity < 0:
		return 0, false
	default:
		return 0, true
	}
}

// extensionFraction maps a travel limit onto [0, 1] of the servo range.
func extensionFraction(limit, min, max float64) float64 {
	if max <= min {
		return 0
	}
	f := (limit - min) / (max - min)
	return math.Min(math.Max(f, 0), 1)
}

// Tool is a cutting tool gated by servo torque.
type Tool struct {
	name  string
	bus   *Bus
	group *feetech.ServoGroup
}

// NewTool creates a cutting tool over the servos in cal.
func NewTool(bus *Bus, name string, cal Calibration) *Tool {
	return &Tool{
		name:  name,
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus.bus, cal.MotorIDs()...),
	}
}

func (t *Tool) Name() string { return t.name }
func (t *Tool) Kind() device.Kind { return device.KindCuttingTool }

// SetEnabled switches the tool on or off.
func (t *Tool) SetEnabled(enabled bool) error {
	err := t.bus.call(func(ctx context.Context) error {
		if enabled {
			return t.group.EnableAll(ctx)
		}
		return t.group.DisableAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("%s: set torque: %w", t.name, err)
	}
	return nil
}
