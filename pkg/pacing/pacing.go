// Package pacing schedules linear-actuator extension against rotation speed.
//
// The rig may only be pushed deeper once the cutting tools have swept the
// face: successive extension steps are at least half a rotation apart.
package pacing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/gwillem/digrig/pkg/device"
)

// ErrInvalidSpeed is returned for a rotation speed without a usable step
// interval: zero, non-finite, or so slow or fast that the interval falls
// outside [MinInterval, MaxInterval].
var ErrInvalidSpeed = errors.New("invalid rotation speed")

// Step interval bounds.
const (
	MinInterval = time.Millisecond
	MaxInterval = 24 * time.Hour
)

// Config holds the pacing parameters.
type Config struct {
	Speed      float64 // rotation target speed in rpm; sign selects direction
	Increment  float64 // extension per step
	ExtendRate float64 // actuator velocity, or K when ScaleRate is set
	ScaleRate  bool    // divide ExtendRate by twice the actuator count
}

// Outcome is the result of an extension step.
type Outcome int

const (
	// Advance moves every extension target one increment deeper.
	Advance Outcome = iota
	// Clamp sets every extension target to its actuator's maximum.
	Clamp
	// MaxDepth means every actuator already sits at maximum travel.
	MaxDepth
)

func (o Outcome) String() string {
	switch o {
	case Advance:
		return "advance"
	case Clamp:
		return "clamp"
	case MaxDepth:
		return "max-depth"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Plan is the extension step to apply. Limits is indexed like the travel
// readings passed to Step and is nil for MaxDepth.
type Plan struct {
	Outcome Outcome
	Limits  []float64
}

// Engine tracks the pacing state: target speed, increment, and the next
// extension deadline. A zero deadline means unscheduled.
type Engine struct {
	cfg      Config
	interval time.Duration
	next     time.Time
}

// New creates an unscheduled engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Increment <= 0 || math.IsNaN(cfg.Increment) {
		return nil, fmt.Errorf("increment must be positive, got %v", cfg.Increment)
	}
	if cfg.ExtendRate <= 0 || math.IsNaN(cfg.ExtendRate) {
		return nil, fmt.Errorf("extend rate must be positive, got %v", cfg.ExtendRate)
	}
	e := &Engine{cfg: cfg}
	if err := e.SetSpeed(cfg.Speed); err != nil {
		return nil, err
	}
	return e, nil
}

// SetSpeed changes the rotation target speed and recomputes the interval.
// An already scheduled deadline is kept.
func (e *Engine) SetSpeed(rpm float64) error {
	interval, err := StepInterval(rpm)
	if err != nil {
		return err
	}
	e.cfg.Speed = rpm
	e.interval = interval
	return nil
}

// StepInterval returns 60 / (2 * |rpm|) seconds, the time for half a
// rotation. The result is checked in float seconds before conversion so a
// tiny speed cannot overflow time.Duration.
func StepInterval(rpm float64) (time.Duration, error) {
	if rpm == 0 || math.IsNaN(rpm) || math.IsInf(rpm, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSpeed, rpm)
	}
	secs := 60 / (2 * math.Abs(rpm))
	if secs > MaxInterval.Seconds() || secs < MinInterval.Seconds() {
		return 0, fmt.Errorf("%w: %v rpm gives a step every %gs, outside [%v, %v]",
			ErrInvalidSpeed, rpm, secs, MinInterval, MaxInterval)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Speed returns the rotation target speed.
func (e *Engine) Speed() float64 {
	return e.cfg.Speed
}

// Increment returns the extension per step.
func (e *Engine) Increment() float64 {
	return e.cfg.Increment
}

// Interval returns the minimum time between extension steps.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// RotationPeriod returns the time for one full rotation.
func (e *Engine) RotationPeriod() time.Duration {
	return 2 * e.interval
}

// ExtensionRate returns the actuator velocity for n actuators working in
// parallel. With ScaleRate the combined throughput stays constant.
func (e *Engine) ExtensionRate(n int) float64 {
	if !e.cfg.ScaleRate || n <= 0 {
		return e.cfg.ExtendRate
	}
	return e.cfg.ExtendRate / float64(n*2)
}

// Schedule sets the next deadline one interval after now.
func (e *Engine) Schedule(now time.Time) {
	e.next = now.Add(e.interval)
}

// Reset clears the deadline.
func (e *Engine) Reset() {
	e.next = time.Time{}
}

// Scheduled returns true if a deadline is set.
func (e *Engine) Scheduled() bool {
	return !e.next.IsZero()
}

// Next returns the next deadline (zero if unscheduled).
func (e *Engine) Next() time.Time {
	return e.next
}

// Due returns true if a deadline is set and now has reached it.
func (e *Engine) Due(now time.Time) bool {
	return e.Scheduled() && !now.Before(e.next)
}

// Skip reschedules without stepping, used when telemetry is unusable.
func (e *Engine) Skip(now time.Time) {
	e.Schedule(now)
}

// InitialLimits returns the first extension targets when mining starts:
// one increment above each actuator's minimum, capped at its maximum.
func (e *Engine) InitialLimits(travels []device.Travel) []float64 {
	return lo.Map(travels, func(t device.Travel, _ int) float64 {
		return min(t.Min+e.cfg.Increment, t.Max)
	})
}

// Step plans one extension step from the current travel readings and
// schedules the next deadline whatever the outcome.
func (e *Engine) Step(now time.Time, travels []device.Travel) Plan {
	defer e.Schedule(now)

	inc := e.cfg.Increment
	overshoot := lo.SomeBy(travels, func(t device.Travel) bool {
		return t.Current+inc > t.Max
	})
	if !overshoot {
		return Plan{
			Outcome: Advance,
			Limits: lo.Map(travels, func(t device.Travel, _ int) float64 {
				return min(t.Limit+inc, t.Max)
			}),
		}
	}

	if lo.EveryBy(travels, device.Travel.AtMax) {
		return Plan{Outcome: MaxDepth}
	}

	// Uneven travel: bring every actuator to its own maximum.
	return Plan{
		Outcome: Clamp,
		Limits: lo.Map(travels, func(t device.Travel, _ int) float64 {
			return t.Max
		}),
	}
}
