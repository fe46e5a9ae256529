package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/equipment"
	"github.com/gwillem/digrig/pkg/servo"
)

func TestLoadFrom_CommentsAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	data := `{
		// slow rotor for the test pit
		"rig": {"tag": "[Pit]", "rotation_speed": 0.25},
		"devices": [
			{"name": "Rotor [Pit]", "kind": "rotation_drive", "backend": "bench"},
		],
	}`
	if err := writeFile(path, data); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Rig.Tag != "[Pit]" || cfg.Rig.RotationSpeed != 0.25 {
		t.Errorf("rig = %+v", cfg.Rig)
	}
	if cfg.Rig.Increment != 0.5 || cfg.Rig.CycleHz != 10 {
		t.Errorf("defaults lost: increment=%v cycle_hz=%v", cfg.Rig.Increment, cfg.Rig.CycleHz)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].Name != "Rotor [Pit]" {
		t.Errorf("devices = %+v", cfg.Devices)
	}
}

func TestSaveTo_LoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	cfg := Default()
	cfg.Devices = []DeviceConfig{{
		Name:    "Piston [Mining]",
		Kind:    "linear_actuator",
		Backend: BackendServo,
		Port:    "/dev/ttyACM0",
		Servos:  servo.Calibration{{ID: 1, RangeMin: 900, RangeMax: 3100}},
		Max:     2,
	}}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	d := got.Devices[0]
	if d.Port != "/dev/ttyACM0" || !d.IsCalibrated() || d.Servos[0].RangeMax != 3100 {
		t.Errorf("device = %+v", d)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFrom_Missing(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadFrom on missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceConfig
		errMsg string
	}{
		{"untagged", DeviceConfig{Name: "Rotor", Kind: "rotation_drive", Backend: BackendBench}, "tag"},
		{"bad kind", DeviceConfig{Name: "Rotor [Mining]", Kind: "rotor", Backend: BackendBench}, "rotor"},
		{"bad backend", DeviceConfig{Name: "Rotor [Mining]", Kind: "rotation_drive", Backend: "can"}, "backend"},
		{"servo drive", DeviceConfig{Name: "Rotor [Mining]", Kind: "rotation_drive", Backend: BackendServo, Port: "p", Servos: servo.Calibration{{ID: 1}}}, "cannot drive"},
		{"servo no port", DeviceConfig{Name: "Drill [Mining]", Kind: "cutting_tool", Backend: BackendServo, Servos: servo.Calibration{{ID: 1}}}, "port"},
		{"servo uncalibrated", DeviceConfig{Name: "Drill [Mining]", Kind: "cutting_tool", Backend: BackendServo, Port: "p"}, "no servos"},
		{"no travel", DeviceConfig{Name: "Piston [Mining]", Kind: "linear_actuator", Backend: BackendBench, Min: 1, Max: 1}, "max"},
		{"no capacity", DeviceConfig{Name: "Cargo [Mining]", Kind: "storage_container", Backend: BackendBench}, "capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Devices = []DeviceConfig{tt.device}
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid device")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidate_DuplicateNames(t *testing.T) {
	cfg := Default()
	cfg.Devices = append(BenchDevices(cfg.Rig.Tag), BenchDevices(cfg.Rig.Tag)[0])
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Validate = %v, want duplicate name error", err)
	}
}

func TestBuild_Bench(t *testing.T) {
	cfg := Default()
	cfg.Devices = BenchDevices(cfg.Rig.Tag)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("bench devices invalid: %v", err)
	}

	dir, closer, err := cfg.Build(clockwork.NewFakeClockAt(time.Unix(0, 0)))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer closer.Close()

	reg := equipment.New(dir)
	reg.PopulateTagged(cfg.Rig.Tag)
	if !reg.IsComplete() {
		t.Fatalf("bench rig missing %v", reg.Missing())
	}
	if n := reg.Counts()[device.KindLinearActuator]; n != 2 {
		t.Errorf("linear actuators = %d, want 2", n)
	}

	tr, err := reg.LinearActuators()[0].Travel()
	if err != nil || tr.Max != 10 {
		t.Errorf("Travel() = %+v, %v", tr, err)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	cfg := Default()
	cfg.Devices = []DeviceConfig{{Name: "X [Mining]", Kind: "conveyor", Backend: BackendBench}}
	if _, _, err := cfg.Build(clockwork.NewRealClock()); err == nil {
		t.Error("Build accepted unknown kind")
	}
}

func writeFile(path, data string) error {
	return os.WriteFile(path, []byte(data), 0644)
}

func TestSave_DefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if Exists() {
		t.Fatal("Exists() in empty directory")
	}
	if err := Default().Save(); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rig != Default().Rig {
		t.Errorf("Load() rig = %+v", cfg.Rig)
	}
}
