package config

import (
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/device/bench"
	"github.com/gwillem/digrig/pkg/servo"
)

// Build creates the configured devices. The returned closer releases any
// serial buses opened for servo devices.
func (c *Config) Build(clk clockwork.Clock) (device.StaticDirectory, io.Closer, error) {
	pool := servo.NewPool()
	dir := make(device.StaticDirectory, 0, len(c.Devices))

	for _, d := range c.Devices {
		dev, err := d.build(pool, clk)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		dir = append(dir, dev)
	}
	return dir, pool, nil
}

func (d DeviceConfig) build(pool *servo.Pool, clk clockwork.Clock) (device.Device, error) {
	kind, err := device.ParseKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	if d.Backend == BackendServo {
		bus, err := pool.Get(d.Port)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		switch kind {
		case device.KindLinearActuator:
			return servo.NewActuator(bus, d.Name, d.Servos, d.Min, d.Max), nil
		case device.KindCuttingTool:
			return servo.NewTool(bus, d.Name, d.Servos), nil
		}
		return nil, fmt.Errorf("%s: servo backend cannot drive a %s", d.Name, kind)
	}

	switch kind {
	case device.KindRotationDrive:
		return bench.NewDrive(d.Name), nil
	case device.KindLinearActuator:
		return bench.NewPiston(d.Name, d.Min, d.Max, clk), nil
	case device.KindCuttingTool:
		return bench.NewTool(d.Name), nil
	case device.KindStorageContainer:
		return bench.NewContainer(d.Name, d.Capacity), nil
	}
	return nil, fmt.Errorf("%s: unsupported kind %s", d.Name, kind)
}

// BenchDevices returns a bench configuration of one rotor, two pistons, one
// drill and one cargo container carrying tag.
func BenchDevices(tag string) []DeviceConfig {
	return []DeviceConfig{
		{Name: "Rotor " + tag, Kind: device.KindRotationDrive.String(), Backend: BackendBench},
		{Name: "Piston 1 " + tag, Kind: device.KindLinearActuator.String(), Backend: BackendBench, Max: 10},
		{Name: "Piston 2 " + tag, Kind: device.KindLinearActuator.String(), Backend: BackendBench, Max: 10},
		{Name: "Drill " + tag, Kind: device.KindCuttingTool.String(), Backend: BackendBench},
		{Name: "Cargo " + tag, Kind: device.KindStorageContainer.String(), Backend: BackendBench, Capacity: 1000},
	}
}
