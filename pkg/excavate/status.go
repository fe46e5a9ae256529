package excavate

import (
	"time"

	"github.com/gwillem/digrig/pkg/device"
)

// ActuatorStatus is one linear actuator's latest reading.
type ActuatorStatus struct {
	Name   string
	Travel device.Travel
	Err    error
}

// ContainerStatus is one storage container's latest reading.
type ContainerStatus struct {
	Name string
	Fill device.Fill
	Err  error
}

// Status is a snapshot of the controller and its devices.
type Status struct {
	Time        time.Time
	Phase       Phase
	Reason      Reason
	Initialized bool
	Speed       float64
	Interval    time.Duration
	NextStep    time.Time // zero when no step is scheduled
	FinishAt    time.Time // zero unless holding at depth
	Counts      map[device.Kind]int
	Missing     []device.Kind
	Actuators   []ActuatorStatus
	Containers  []ContainerStatus
}

// Status reads current telemetry and returns a snapshot. It does not change
// controller state.
func (c *Controller) Status() Status {
	s := Status{
		Time:        c.clock.Now(),
		Phase:       c.state.phase,
		Reason:      c.state.reason,
		Initialized: c.state.initialized,
		Speed:       c.pacing.Speed(),
		Interval:    c.pacing.Interval(),
		NextStep:    c.pacing.Next(),
		FinishAt:    c.state.finishAt,
		Counts:      c.registry.Counts(),
		Missing:     c.registry.Missing(),
	}

	for _, a := range c.registry.LinearActuators() {
		t, err := a.Travel()
		if err == nil {
			err = t.Validate()
		}
		s.Actuators = append(s.Actuators, ActuatorStatus{Name: a.Name(), Travel: t, Err: err})
	}
	for _, sc := range c.registry.StorageContainers() {
		f, err := sc.Fill()
		if err == nil {
			err = f.Validate()
		}
		s.Containers = append(s.Containers, ContainerStatus{Name: sc.Name(), Fill: f, Err: err})
	}
	return s
}
