package excavate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCommandQueueFull is returned by Send while earlier commands are pending.
var ErrCommandQueueFull = errors.New("command queue full")

// Runner is the tick source: it invokes the controller at a fixed rate,
// passing the measured elapsed time and at most one queued command per tick.
type Runner struct {
	ctrl *Controller
	hz   int

	mu       sync.Mutex
	running  bool
	commands chan string
	stateCh  chan Status
}

// NewRunner creates a runner ticking ctrl hz times per second (10 if hz <= 0).
func NewRunner(ctrl *Controller, hz int) *Runner {
	if hz <= 0 {
		hz = 10
	}
	return &Runner{
		ctrl:     ctrl,
		hz:       hz,
		commands: make(chan string, 8),
		stateCh:  make(chan Status, 1),
	}
}

// Hz returns the tick frequency.
func (r *Runner) Hz() int {
	return r.hz
}

// States returns a channel that receives the latest status after every tick.
func (r *Runner) States() <-chan Status {
	return r.stateCh
}

// Send queues an operator command for the next tick.
func (r *Runner) Send(command string) error {
	select {
	case r.commands <- command:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Start runs the tick loop on the controller's clock until ctx is done,
// then halts the rig.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("already running")
	}
	r.running = true
	r.mu.Unlock()

	ticker := r.ctrl.clock.NewTicker(time.Second / time.Duration(r.hz))
	defer ticker.Stop()

	last := r.ctrl.clock.Now()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case t := <-ticker.Chan():
			elapsed := t.Sub(last)
			last = t
			r.step(elapsed)
		}
	}
}

func (r *Runner) step(elapsed time.Duration) {
	var command string
	select {
	case command = <-r.commands:
	default:
	}

	r.ctrl.Tick(elapsed, command)
	r.sendState(r.ctrl.Status())
}

func (r *Runner) sendState(s Status) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}

func (r *Runner) shutdown() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.ctrl.Halt()
}
