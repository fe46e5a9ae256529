// Package device defines the actuator handles the rig controller drives.
package device

import "fmt"

// Kind identifies a class of rig equipment.
type Kind int

// Equipment kinds in rig order.
const (
	KindRotationDrive Kind = iota
	KindLinearActuator
	KindCuttingTool
	KindStorageContainer
)

var kindNames = map[Kind]string{
	KindRotationDrive:    "rotation_drive",
	KindLinearActuator:   "linear_actuator",
	KindCuttingTool:      "cutting_tool",
	KindStorageContainer: "storage_container",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a config name such as "linear_actuator" to a Kind.
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown equipment kind %q", name)
}

// RequiredKinds returns every kind a rig needs before it can run (in order).
func RequiredKinds() []Kind {
	return []Kind{
		KindRotationDrive,
		KindLinearActuator,
		KindCuttingTool,
		KindStorageContainer,
	}
}

// Device is an opaque handle to a physical device.
type Device interface {
	Name() string
	Kind() Kind
}

// RotationDrive provides continuous rotation at a settable target speed (rpm).
type RotationDrive interface {
	Device
	SetEnabled(enabled bool) error
	SetTargetSpeed(rpm float64) error
}

// LinearActuator provides bounded translation. The actuator moves at the
// commanded velocity until it reaches its limit (extending) or its lower
// bound (retracting).
type LinearActuator interface {
	Device
	SetEnabled(enabled bool) error
	SetVelocity(velocity float64) error
	SetLimit(limit float64) error
	Travel() (Travel, error)
}

// CuttingTool removes material while enabled.
type CuttingTool interface {
	Device
	SetEnabled(enabled bool) error
}

// StorageContainer reports how much material it holds.
type StorageContainer interface {
	Device
	Fill() (Fill, error)
}
