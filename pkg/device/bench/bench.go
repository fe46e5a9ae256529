// Package bench provides in-memory rig devices for tests and dry runs.
//
// Linear actuators move at their commanded velocity as the clock advances;
// nothing else is modelled. Storage volume changes only when set explicitly.
package bench

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/device"
)

// Drive is an in-memory rotation drive.
type Drive struct {
	name string

	mu      sync.Mutex
	enabled bool
	speed   float64
}

// NewDrive creates a disabled drive.
func NewDrive(name string) *Drive {
	return &Drive{name: name}
}

func (d *Drive) Name() string { return d.name }
func (d *Drive) Kind() device.Kind { return device.KindRotationDrive }

// SetEnabled switches the drive on or off.
func (d *Drive) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
	return nil
}

// SetTargetSpeed sets the target speed in rpm.
func (d *Drive) SetTargetSpeed(rpm float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = rpm
	return nil
}

// Enabled reports whether the drive is switched on.
func (d *Drive) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Speed returns the target speed.
func (d *Drive) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// Tool is an in-memory cutting tool.
type Tool struct {
	name string

	mu      sync.Mutex
	enabled bool
}

// NewTool creates a disabled tool.
func NewTool(name string) *Tool {
	return &Tool{name: name}
}

func (t *Tool) Name() string { return t.name }
func (t *Tool) Kind() device.Kind { return device.KindCuttingTool }

// SetEnabled switches the tool on or off.
func (t *Tool) SetEnabled(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	return nil
}

// Enabled reports whether the tool is switched on.
func (t *Tool) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Piston is an in-memory linear actuator.
type Piston struct {
	name  string
	clock clockwork.Clock

	mu       sync.Mutex
	last     time.Time
	enabled  bool
	velocity float64
	current  float64
	limit    float64
	min, max float64
	fault    error
}

// NewPiston creates a retracted, disabled piston with the given travel range.
func NewPiston(name string, min, max float64, c clockwork.Clock) *Piston {
	return &Piston{
		name:    name,
		clock:   c,
		last:    c.Now(),
		current: min,
		limit:   max,
		min:     min,
		max:     max,
	}
}

func (p *Piston) Name() string { return p.name }
func (p *Piston) Kind() device.Kind { return device.KindLinearActuator }

// advance moves the piston under its current command up to now.
// Callers hold p.mu.
func (p *Piston) advance() {
	now := p.clock.Now()
	dt := now.Sub(p.last).Seconds()
	p.last = now
	if !p.enabled || dt <= 0 {
		return
	}

	switch {
	case p.velocity > 0:
		target := min(p.limit, p.max)
		if p.current < target {
			p.current = min(p.current+p.velocity*dt, target)
		}
	case p.velocity < 0:
		p.current = max(p.current+p.velocity*dt, p.min)
	}
}

// SetEnabled switches the piston on or off.
func (p *Piston) SetEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.enabled = enabled
	return nil
}

// SetVelocity sets the extension velocity (negative retracts).
func (p *Piston) SetVelocity(velocity float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.velocity = velocity
	return nil
}

// SetLimit sets the extension target, clamped to the travel range.
func (p *Piston) SetLimit(limit float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.limit = max(p.min, min(limit, p.max))
	return nil
}

// Travel reports the current position and bounds.
func (p *Piston) Travel() (device.Travel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault != nil {
		return device.Travel{}, p.fault
	}
	p.advance()
	return device.Travel{
		Current: p.current,
		Min:     p.min,
		Max:     p.max,
		Limit:   p.limit,
	}, nil
}

// SetPosition places the piston at pos, bypassing its command.
func (p *Piston) SetPosition(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.current = pos
}

// SetFault makes Travel fail with err until cleared with nil.
func (p *Piston) SetFault(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = err
}

// Enabled reports whether the piston is switched on.
func (p *Piston) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Velocity returns the commanded velocity.
func (p *Piston) Velocity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.velocity
}

// Container is an in-memory storage container.
type Container struct {
	name string

	mu       sync.Mutex
	current  float64
	capacity float64
	fault    error
}

// NewContainer creates an empty container.
func NewContainer(name string, capacity float64) *Container {
	return &Container{name: name, capacity: capacity}
}

func (c *Container) Name() string { return c.name }
func (c *Container) Kind() device.Kind { return device.KindStorageContainer }

// Fill reports stored and maximum volume.
func (c *Container) Fill() (device.Fill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fault != nil {
		return device.Fill{}, c.fault
	}
	return device.Fill{Current: c.current, Max: c.capacity}, nil
}

// SetVolume sets the stored volume.
func (c *Container) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = volume
}

// SetFault makes Fill fail with err until cleared with nil.
func (c *Container) SetFault(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = err
}

// RigConfig sizes a bench rig.
type RigConfig struct {
	Tag        string
	Drives     int
	Pistons    int
	Tools      int
	Containers int
	Travel     float64 // max travel per piston
	Capacity   float64 // volume per container
}

// Rig is a complete set of bench devices.
type Rig struct {
	Drives     []*Drive
	Pistons    []*Piston
	Tools      []*Tool
	Containers []*Container
}

// NewRig creates a bench rig whose device names carry cfg.Tag.
func NewRig(cfg RigConfig, c clockwork.Clock) *Rig {
	rig := &Rig{}
	for i := range cfg.Drives {
		rig.Drives = append(rig.Drives, NewDrive(fmt.Sprintf("Rotor %d %s", i+1, cfg.Tag)))
	}
	for i := range cfg.Pistons {
		rig.Pistons = append(rig.Pistons, NewPiston(fmt.Sprintf("Piston %d %s", i+1, cfg.Tag), 0, cfg.Travel, c))
	}
	for i := range cfg.Tools {
		rig.Tools = append(rig.Tools, NewTool(fmt.Sprintf("Drill %d %s", i+1, cfg.Tag)))
	}
	for i := range cfg.Containers {
		rig.Containers = append(rig.Containers, NewContainer(fmt.Sprintf("Cargo %d %s", i+1, cfg.Tag), cfg.Capacity))
	}
	return rig
}

// Devices returns every device in the rig.
func (r *Rig) Devices() []device.Device {
	var all []device.Device
	for _, d := range r.Drives {
		all = append(all, d)
	}
	for _, p := range r.Pistons {
		all = append(all, p)
	}
	for _, t := range r.Tools {
		all = append(all, t)
	}
	for _, c := range r.Containers {
		all = append(all, c)
	}
	return all
}

// Directory returns a device directory over the rig.
func (r *Rig) Directory() device.StaticDirectory {
	return device.StaticDirectory(r.Devices())
}
