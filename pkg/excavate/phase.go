package excavate

import "fmt"

// Phase is the controller's position in the excavation cycle.
type Phase int

const (
	Uninitialized Phase = iota
	Idle
	Mining
	HoldingAtDepth
	Retracting
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Mining:
		return "mining"
	case HoldingAtDepth:
		return "holding-at-depth"
	case Retracting:
		return "retracting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Reason records why the rig is retracting; it is consumed when retraction
// completes.
type Reason int

const (
	ReasonNone Reason = iota
	InitializingComplete
	CycleFinished
	ManualStop
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case InitializingComplete:
		return "initializing-complete"
	case CycleFinished:
		return "cycle-finished"
	case ManualStop:
		return "manual-stop"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}
