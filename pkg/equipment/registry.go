// Package equipment keeps the controller's cached view of rig devices.
package equipment

import (
	"slices"

	"github.com/samber/lo"

	"github.com/gwillem/digrig/pkg/device"
)

// Registry maps each equipment kind to the devices currently known for it.
type Registry struct {
	dir   device.Directory
	kinds map[device.Kind][]device.Device
}

// New creates an empty registry backed by dir.
func New(dir device.Directory) *Registry {
	return &Registry{
		dir:   dir,
		kinds: make(map[device.Kind][]device.Device),
	}
}

// Populate replaces the kind's devices with every directory entry matching
// match. Devices of another kind are dropped even if match accepts them.
// Returns the new member count.
func (r *Registry) Populate(kind device.Kind, match device.Predicate) int {
	found := r.dir.Find(match)
	members := lo.Filter(found, func(d device.Device, _ int) bool {
		return d.Kind() == kind
	})
	r.kinds[kind] = members
	return len(members)
}

// PopulateTagged repopulates every required kind with devices whose name
// contains tag.
func (r *Registry) PopulateTagged(tag string) {
	for _, kind := range device.RequiredKinds() {
		r.Populate(kind, device.Match(kind, tag))
	}
}

// IsComplete returns true if every required kind has at least one member.
func (r *Registry) IsComplete() bool {
	return len(r.Missing()) == 0
}

// Missing returns the required kinds without members.
func (r *Registry) Missing() []device.Kind {
	return lo.Filter(device.RequiredKinds(), func(kind device.Kind, _ int) bool {
		return len(r.kinds[kind]) == 0
	})
}

// Get returns a copy of the kind's devices. The copy does not follow later
// Populate calls; fetch again every tick.
func (r *Registry) Get(kind device.Kind) []device.Device {
	return slices.Clone(r.kinds[kind])
}

// Counts returns the member count per required kind.
func (r *Registry) Counts() map[device.Kind]int {
	counts := make(map[device.Kind]int, len(device.RequiredKinds()))
	for _, kind := range device.RequiredKinds() {
		counts[kind] = len(r.kinds[kind])
	}
	return counts
}

// Snapshot is a saved copy of the registry contents.
type Snapshot map[device.Kind][]device.Device

// Snapshot copies the current contents.
func (r *Registry) Snapshot() Snapshot {
	snap := make(Snapshot, len(r.kinds))
	for kind, devs := range r.kinds {
		snap[kind] = slices.Clone(devs)
	}
	return snap
}

// Restore replaces the contents with a snapshot.
func (r *Registry) Restore(snap Snapshot) {
	r.kinds = make(map[device.Kind][]device.Device, len(snap))
	for kind, devs := range snap {
		r.kinds[kind] = slices.Clone(devs)
	}
}

// RotationDrives returns the registered rotation drives.
func (r *Registry) RotationDrives() []device.RotationDrive {
	return members[device.RotationDrive](r, device.KindRotationDrive)
}

// LinearActuators returns the registered linear actuators.
func (r *Registry) LinearActuators() []device.LinearActuator {
	return members[device.LinearActuator](r, device.KindLinearActuator)
}

// CuttingTools returns the registered cutting tools.
func (r *Registry) CuttingTools() []device.CuttingTool {
	return members[device.CuttingTool](r, device.KindCuttingTool)
}

// StorageContainers returns the registered storage containers.
func (r *Registry) StorageContainers() []device.StorageContainer {
	return members[device.StorageContainer](r, device.KindStorageContainer)
}

// members narrows a kind's devices to T, skipping handles that do not
// implement it.
func members[T device.Device](r *Registry, kind device.Kind) []T {
	return lo.FilterMap(r.kinds[kind], func(d device.Device, _ int) (T, bool) {
		v, ok := d.(T)
		return v, ok
	})
}
