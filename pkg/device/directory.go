package device

import "strings"

// Predicate selects devices from a Directory.
type Predicate func(Device) bool

// Directory looks up devices. Find is synchronous and side-effect free.
type Directory interface {
	Find(match Predicate) []Device
}

// Match selects devices of the given kind whose name contains tag.
// An empty tag matches every device of the kind.
func Match(kind Kind, tag string) Predicate {
	return func(d Device) bool {
		return d.Kind() == kind && strings.Contains(d.Name(), tag)
	}
}

// StaticDirectory serves a fixed set of devices in insertion order.
type StaticDirectory []Device

// Find returns the devices matching the predicate.
func (s StaticDirectory) Find(match Predicate) []Device {
	var found []Device
	for _, d := range s {
		if match(d) {
			found = append(found, d)
		}
	}
	return found
}
