package excavate

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/pacing"
	"github.com/gwillem/digrig/pkg/safety"
)

// start begins mining from Idle with every actuator retracted.
func (c *Controller) start(now time.Time) error {
	if c.state.phase != Idle {
		c.log.Warn("Cannot start excavation", "phase", c.state.phase)
		return fmt.Errorf("%w: start while %s", ErrRejected, c.state.phase)
	}

	actuators := c.registry.LinearActuators()
	travels, err := safety.ReadTravels(actuators)
	if err != nil {
		c.log.Warn("Cannot start excavation", "err", err)
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if !lo.EveryBy(travels, device.Travel.AtMin) {
		c.log.Warn("Please wait for actuators to fully retract")
		return fmt.Errorf("%w: actuators not retracted", ErrRejected)
	}

	c.log.Info("Starting excavation")
	speed := c.pacing.Speed()
	for _, r := range c.registry.RotationDrives() {
		c.try(r, "enable", r.SetEnabled(true))
		c.try(r, "set speed", r.SetTargetSpeed(speed))
	}
	for _, t := range c.registry.CuttingTools() {
		c.try(t, "enable", t.SetEnabled(true))
	}

	rate := c.pacing.ExtensionRate(len(actuators))
	limits := c.pacing.InitialLimits(travels)
	for i, a := range actuators {
		c.try(a, "enable", a.SetEnabled(true))
		c.try(a, "set velocity", a.SetVelocity(rate))
		c.try(a, "set limit", a.SetLimit(limits[i]))
	}

	c.pacing.Schedule(now)
	c.state.phase = Mining
	c.state.finishAt = time.Time{}
	c.log.Info("Excavation has started",
		"rotation_speed", speed,
		"extension_rate", rate,
		"step_interval", c.pacing.Interval())
	return nil
}

// extend runs a pacing step when one is due.
func (c *Controller) extend(now time.Time) {
	if !c.pacing.Due(now) {
		return
	}

	actuators := c.registry.LinearActuators()
	travels, err := safety.ReadTravels(actuators)
	if err != nil {
		c.log.Warn("Skipping extension step", "err", err)
		c.pacing.Skip(now)
		return
	}

	plan := c.pacing.Step(now, travels)
	if plan.Outcome == pacing.MaxDepth {
		c.state.finishAt = now.Add(c.pacing.RotationPeriod())
		c.state.phase = HoldingAtDepth
		c.pacing.Reset()
		c.log.Info("Actuators at max depth, holding for one rotation",
			"finish_at", c.state.finishAt.Format(time.TimeOnly))
		return
	}

	for i, a := range actuators {
		c.try(a, "set limit", a.SetLimit(plan.Limits[i]))
	}
	c.log.Debug("Actuators extended", "outcome", plan.Outcome, "next_step", c.pacing.Next().Format(time.TimeOnly))
}

// retract stops rotation and cutting and pulls every actuator back.
// A pending initialization keeps its reason so the latch still fires.
func (c *Controller) retract(now time.Time, reason Reason) {
	if c.state.phase == Retracting && c.state.reason == InitializingComplete {
		reason = InitializingComplete
	}

	for _, r := range c.registry.RotationDrives() {
		c.try(r, "stop", r.SetTargetSpeed(0))
		c.try(r, "disable", r.SetEnabled(false))
	}
	for _, t := range c.registry.CuttingTools() {
		c.try(t, "disable", t.SetEnabled(false))
	}
	for _, a := range c.registry.LinearActuators() {
		c.try(a, "enable", a.SetEnabled(true))
		c.try(a, "retract", a.SetVelocity(-c.cfg.RetractRate))
	}

	c.pacing.Reset()
	c.state.finishAt = time.Time{}
	c.state.phase = Retracting
	c.state.reason = reason
	c.log.Info("Retracting", "reason", reason, "at", now.Format(time.TimeOnly))
}

// checkRetracted moves to Idle once every actuator is at its lower limit.
func (c *Controller) checkRetracted() {
	actuators := c.registry.LinearActuators()
	travels, err := safety.ReadTravels(actuators)
	if err != nil {
		c.log.Warn("Skipping retraction check", "err", err)
		return
	}
	if !lo.EveryBy(travels, device.Travel.AtMin) {
		return
	}

	for _, r := range c.registry.RotationDrives() {
		c.try(r, "stop", r.SetTargetSpeed(0))
		c.try(r, "disable", r.SetEnabled(false))
	}
	for _, t := range c.registry.CuttingTools() {
		c.try(t, "disable", t.SetEnabled(false))
	}
	for i, a := range actuators {
		c.try(a, "stop", a.SetVelocity(0))
		c.try(a, "zero limit", a.SetLimit(travels[i].Min))
		c.try(a, "disable", a.SetEnabled(false))
	}

	reason := c.state.reason
	c.log.Info("Retraction has finished", "reason", reason)
	switch reason {
	case InitializingComplete:
		c.state.initialized = true
		c.log.Info("Initialized")
	case CycleFinished:
		c.log.Info("Excavation process has finished")
	case ManualStop:
		c.log.Info("Excavation stopped")
	}
	c.state.reason = ReasonNone
	c.state.phase = Idle
}

// setSpeed changes the rotation speed while mining.
func (c *Controller) setSpeed(rpm float64) error {
	if c.state.phase != Mining {
		c.log.Warn("Rotation speed can only be set while mining", "phase", c.state.phase)
		return fmt.Errorf("%w: set-speed while %s", ErrRejected, c.state.phase)
	}
	if err := c.pacing.SetSpeed(rpm); err != nil {
		c.log.Warn("Rejected rotation speed", "err", err)
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	for _, r := range c.registry.RotationDrives() {
		c.try(r, "set speed", r.SetTargetSpeed(rpm))
	}
	c.log.Info("Rotor speed adjusted", "rotation_speed", rpm, "step_interval", c.pacing.Interval())
	return nil
}
