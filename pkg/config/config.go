// Package config loads and saves the rig configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/excavate"
	"github.com/gwillem/digrig/pkg/servo"
)

const DefaultConfigFile = "digrig.json"

// Device backends.
const (
	BackendServo = "servo"
	BackendBench = "bench"
)

// Config holds the rig configuration
type Config struct {
	Rig     excavate.Config `json:"rig"`
	Devices []DeviceConfig  `json:"devices"`
	LogFile string          `json:"log_file,omitempty"` // JSON log, appended
}

// DeviceConfig describes one device of the rig.
type DeviceConfig struct {
	Name    string `json:"name"` // must carry the rig tag
	Kind    string `json:"kind"`
	Backend string `json:"backend"`

	// servo backend
	Port   string            `json:"port,omitempty"`
	Servos servo.Calibration `json:"servos,omitempty"`

	// linear actuators
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// bench storage containers
	Capacity float64 `json:"capacity,omitempty"`
}

// IsCalibrated returns true if a servo device has calibration data
func (d *DeviceConfig) IsCalibrated() bool {
	return len(d.Servos) > 0
}

// Default returns a configuration with the default cycle and no devices.
func Default() *Config {
	return &Config{Rig: excavate.DefaultConfig()}
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom loads configuration from a specific file. The file may contain
// comments and trailing commas; missing cycle settings keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if the default config file exists
func Exists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// Validate checks the cycle settings and every device entry.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Rig.Validate(); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if err := d.validate(c.Rig.Tag); err != nil {
			errs = append(errs, fmt.Errorf("devices[%d]: %w", i, err))
		}
		if names[d.Name] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name))
		}
		names[d.Name] = true
	}
	return errors.Join(errs...)
}

func (d DeviceConfig) validate(tag string) error {
	if d.Name == "" {
		return errors.New("name is empty")
	}
	if !strings.Contains(d.Name, tag) {
		return fmt.Errorf("%s: name does not carry tag %q", d.Name, tag)
	}
	kind, err := device.ParseKind(d.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	switch d.Backend {
	case BackendServo:
		if kind != device.KindLinearActuator && kind != device.KindCuttingTool {
			return fmt.Errorf("%s: servo backend cannot drive a %s", d.Name, kind)
		}
		if d.Port == "" {
			return fmt.Errorf("%s: servo backend needs a port", d.Name)
		}
		if !d.IsCalibrated() {
			return fmt.Errorf("%s: no servos configured", d.Name)
		}
	case BackendBench:
	default:
		return fmt.Errorf("%s: unknown backend %q", d.Name, d.Backend)
	}

	switch kind {
	case device.KindLinearActuator:
		if d.Max <= d.Min {
			return fmt.Errorf("%s: max (%v) must exceed min (%v)", d.Name, d.Max, d.Min)
		}
	case device.KindStorageContainer:
		if d.Capacity <= 0 {
			return fmt.Errorf("%s: capacity must be positive", d.Name)
		}
	}
	return nil
}
