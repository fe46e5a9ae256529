// Package servo drives rig devices from Feetech STS serial-bus servos.
//
// A linear actuator is a position servo (or several moving together) whose
// calibrated range maps onto the actuator's travel. A cutting tool is a servo
// whose torque enable gates the tool.
package servo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// DefaultTimeout bounds every bus transaction made by a device.
const DefaultTimeout = 100 * time.Millisecond

// Bus is an open serial bus.
type Bus struct {
	bus     *feetech.Bus
	port    string
	timeout time.Duration
}

// Open opens the serial bus on port.
func Open(port string) (*Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return &Bus{bus: bus, port: port, timeout: DefaultTimeout}, nil
}

// Port returns the serial port name.
func (b *Bus) Port() string {
	return b.port
}

// Close closes the bus connection.
func (b *Bus) Close() error {
	return b.bus.Close()
}

// Scan lists the servos answering with IDs in [first, last].
func (b *Bus) Scan(ctx context.Context, first, last int) ([]feetech.FoundServo, error) {
	servos, err := b.bus.Scan(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.port, err)
	}
	return servos, nil
}

// Position reads the raw position of one servo.
func (b *Bus) Position(ctx context.Context, s feetech.FoundServo) (int, error) {
	return feetech.NewServo(b.bus, s.ID, s.Model).Position(ctx)
}

// Release disables torque so the servos can be moved by hand.
func (b *Bus) Release(ctx context.Context, ids ...int) error {
	return feetech.NewServoGroupByIDs(b.bus, ids...).DisableAll(ctx)
}

// Wiggle moves a servo briefly back and forth so the operator can see
// which device it drives.
func (b *Bus) Wiggle(ctx context.Context, s feetech.FoundServo) error {
	servo := feetech.NewServo(b.bus, s.ID, s.Model)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	if err := servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable servo: %w", err)
	}

	const (
		wiggleAmount = 30
		moveTimeMs   = 500
	)
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	servo.Disable(ctx)
	return nil
}

// call runs fn with a context bounded by the bus timeout.
func (b *Bus) call(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return fn(ctx)
}

// Pool shares one open bus per serial port.
type Pool struct {
	mu    sync.Mutex
	buses map[string]*Bus
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{buses: make(map[string]*Bus)}
}

// Get returns the bus for port, opening it on first use.
func (p *Pool) Get(port string) (*Bus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.buses[port]; ok {
		return b, nil
	}
	b, err := Open(port)
	if err != nil {
		return nil, err
	}
	p.buses[port] = b
	return b, nil
}

// Close closes every open bus.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for port, b := range p.buses {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.buses, port)
	}
	return firstErr
}
