// Package excavate runs the excavation cycle of a rig: rotate, extend, cut,
// retract, empty.
//
// The Controller is driven by an external tick source. Each evaluated tick
// runs the safety checks, applies at most one operator command, paces the
// linear-actuator extension, and moves the rig through its phases:
//
//	Uninitialized -> Retracting -> Idle -> Mining -> HoldingAtDepth -> Retracting -> Idle
//
// The controller is single-threaded: Tick, Apply, Status and Halt must be
// called from one goroutine. Runner provides that loop.
package excavate

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/equipment"
	"github.com/gwillem/digrig/pkg/pacing"
	"github.com/gwillem/digrig/pkg/safety"
)

// cycle is the mutable phase state. It is copied before every evaluation so
// a failed tick can be rolled back.
type cycle struct {
	phase       Phase
	reason      Reason
	initialized bool
	finishAt    time.Time
}

// Controller owns the excavation state machine.
type Controller struct {
	cfg      Config
	clock    clockwork.Clock
	log      *slog.Logger
	registry *equipment.Registry
	pacing   *pacing.Engine
	safety   *safety.Monitor

	state      cycle
	discovered bool
	elapsed    time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithLogger sets the logger that receives status messages.
func WithLogger(l *slog.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.log = l
	}
}

// New creates an uninitialized controller over the devices in dir.
// Discovery happens on the first evaluated tick.
func New(dir device.Directory, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engine, err := pacing.New(pacing.Config{
		Speed:      cfg.RotationSpeed,
		Increment:  cfg.Increment,
		ExtendRate: cfg.ExtendRate,
		ScaleRate:  cfg.ScaleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("create pacing engine: %w", err)
	}

	c := &Controller{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: equipment.New(dir),
		pacing:   engine,
		safety:   safety.New(cfg.FillThreshold),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.state.phase
}

// Reason returns the pending retraction reason.
func (c *Controller) Reason() Reason {
	return c.state.reason
}

// Initialized returns true once the first retraction after discovery has
// completed.
func (c *Controller) Initialized() bool {
	return c.state.initialized
}

// FinishDeadline returns the time HoldingAtDepth ends (zero when not holding).
func (c *Controller) FinishDeadline() time.Time {
	return c.state.finishAt
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Tick is one invocation by the tick source. elapsed is the time since the
// previous invocation and command is an optional operator command.
//
// Without a command, evaluation is skipped until at least one cycle interval
// has accumulated. Unrecognized commands are ignored.
func (c *Controller) Tick(elapsed time.Duration, command string) {
	c.elapsed += elapsed
	if command == "" && c.elapsed < c.cfg.CycleInterval() {
		return
	}
	c.elapsed = 0

	var cmd *Command
	if command != "" {
		parsed, err := ParseCommand(command)
		if err != nil {
			c.log.Debug("Ignoring command", "command", command, "err", err)
		} else {
			cmd = &parsed
		}
	}
	c.evaluate(cmd)
}

// Apply evaluates one tick carrying cmd, bypassing the rate limiter.
// It returns ErrRejected if the command does not fit the current phase.
func (c *Controller) Apply(cmd Command) error {
	c.elapsed = 0
	return c.evaluate(&cmd)
}

// evaluate runs one full state evaluation. A panic anywhere inside restores
// the phase, pacing and registry state from before the tick and drives the
// devices back to what that phase expects.
func (c *Controller) evaluate(cmd *Command) (err error) {
	now := c.clock.Now()
	saved := c.state
	savedPacing := *c.pacing
	savedRegistry := c.registry.Snapshot()
	savedDiscovered := c.discovered

	defer func() {
		if r := recover(); r != nil {
			c.state = saved
			*c.pacing = savedPacing
			c.registry.Restore(savedRegistry)
			c.discovered = savedDiscovered
			c.log.Error("Tick evaluation failed",
				"phase", saved.phase,
				"command", cmd,
				"panic", r,
				"stack", string(debug.Stack()))
			c.settle()
			err = fmt.Errorf("tick evaluation failed: %v", r)
		}
	}()

	if !c.discovered {
		c.discover(now)
	}
	c.monitor(now)
	if cmd != nil {
		err = c.apply(now, *cmd)
	}
	c.advance(now)
	return err
}

// discover repopulates the registry. A complete registry moves an
// uninitialized rig into its initial retraction; an incomplete one parks the
// rig in Uninitialized until the next explicit rediscovery.
func (c *Controller) discover(now time.Time) {
	c.discovered = true
	c.registry.PopulateTagged(c.cfg.Tag)

	counts := c.registry.Counts()
	c.log.Info("Found equipment",
		"rotation_drives", counts[device.KindRotationDrive],
		"linear_actuators", counts[device.KindLinearActuator],
		"cutting_tools", counts[device.KindCuttingTool],
		"storage_containers", counts[device.KindStorageContainer])

	if missing := c.registry.Missing(); len(missing) > 0 {
		for _, kind := range missing {
			c.log.Warn(fmt.Sprintf("No %s found", kind), "tag", c.cfg.Tag)
		}
		if c.state.phase != Uninitialized {
			c.log.Error("Equipment lost, halting rig", "phase", c.state.phase)
			c.halt()
			return
		}
		c.log.Warn("Initialization failed")
		return
	}

	if c.state.phase == Uninitialized {
		c.log.Info("Initializing")
		c.retract(now, InitializingComplete)
	}
}

// monitor runs the safety checks and ends mining when one trips.
func (c *Controller) monitor(now time.Time) {
	if c.state.phase == Uninitialized {
		return
	}

	verdict, err := c.safety.Evaluate(c.registry.StorageContainers(), c.registry.LinearActuators())
	if err != nil {
		c.log.Warn("Skipping safety check", "err", err)
		return
	}

	switch c.state.phase {
	case Mining, HoldingAtDepth:
	default:
		return
	}

	if c.cfg.StopOnStorageFull && verdict.StorageFull {
		c.log.Info("All storage is full, stopping excavation")
		c.retract(now, CycleFinished)
		return
	}
	if c.cfg.StopOnMaxTravel && c.state.phase == Mining && verdict.TravelExhausted {
		c.log.Info("Actuators reached maximum travel, stopping excavation")
		c.retract(now, CycleFinished)
	}
}

// apply executes an operator command.
func (c *Controller) apply(now time.Time, cmd Command) error {
	switch cmd.Verb {
	case Start:
		return c.start(now)

	case Stop:
		switch c.state.phase {
		case Mining, HoldingAtDepth:
			c.retract(now, ManualStop)
			return nil
		}
		c.log.Debug("Nothing to stop", "phase", c.state.phase)
		return fmt.Errorf("%w: stop while %s", ErrRejected, c.state.phase)

	case Reset:
		if c.state.phase == Uninitialized {
			c.discover(now)
			return nil
		}
		c.log.Info("Resetting")
		c.retract(now, ManualStop)
		return nil

	case ResetCache:
		c.discover(now)
		return nil

	case SetSpeed:
		return c.setSpeed(cmd.Speed)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// advance runs the phase-specific work of a tick.
func (c *Controller) advance(now time.Time) {
	switch c.state.phase {
	case Mining:
		c.extend(now)
	case HoldingAtDepth:
		if now.After(c.state.finishAt) {
			c.log.Info("Finish time reached")
			c.retract(now, CycleFinished)
		}
	case Retracting:
		c.checkRetracted()
	}
}

// Halt disables every registered device and returns the controller to
// Uninitialized. Only reset or reset-cache bring it back.
func (c *Controller) Halt() {
	c.halt()
	c.log.Info("Rig halted")
}

func (c *Controller) halt() {
	for _, r := range c.registry.RotationDrives() {
		c.try(r, "stop", r.SetTargetSpeed(0))
		c.try(r, "disable", r.SetEnabled(false))
	}
	for _, t := range c.registry.CuttingTools() {
		c.try(t, "disable", t.SetEnabled(false))
	}
	for _, a := range c.registry.LinearActuators() {
		c.try(a, "stop", a.SetVelocity(0))
		c.try(a, "disable", a.SetEnabled(false))
	}
	c.pacing.Reset()
	c.state.phase = Uninitialized
	c.state.reason = ReasonNone
	c.state.finishAt = time.Time{}
	c.discovered = true
}

// settle re-applies the device state of the current phase after a failed
// tick, so a half-applied transition cannot leave the rig running. Mining and
// HoldingAtDepth keep whatever the devices were doing.
func (c *Controller) settle() {
	switch c.state.phase {
	case Mining, HoldingAtDepth:
		return
	}

	for _, r := range c.registry.RotationDrives() {
		c.guard(r, "stop", func() error { return r.SetTargetSpeed(0) })
		c.guard(r, "disable", func() error { return r.SetEnabled(false) })
	}
	for _, t := range c.registry.CuttingTools() {
		c.guard(t, "disable", func() error { return t.SetEnabled(false) })
	}
	for _, a := range c.registry.LinearActuators() {
		if c.state.phase == Retracting {
			c.guard(a, "enable", func() error { return a.SetEnabled(true) })
			c.guard(a, "retract", func() error { return a.SetVelocity(-c.cfg.RetractRate) })
			continue
		}
		c.guard(a, "stop", func() error { return a.SetVelocity(0) })
		c.guard(a, "disable", func() error { return a.SetEnabled(false) })
	}
}

// guard runs one device command, logging an error or a panic.
func (c *Controller) guard(d device.Device, action string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Device command panicked", "device", d.Name(), "action", action, "panic", r)
		}
	}()
	c.try(d, action, fn())
}

// try logs a failed device command. Device writes are best effort: the
// controller keeps going and the next tick re-reads telemetry.
func (c *Controller) try(d device.Device, action string, err error) {
	if err != nil {
		c.log.Warn("Device command failed", "device", d.Name(), "action", action, "err", err)
	}
}
