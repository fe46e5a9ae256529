// Package digrig controls an excavation rig: rotation drives turn the drill
// head, linear actuators push it into the ground in paced steps, cutting
// tools run while it advances, and storage containers collect the spoil.
//
// # Installation
//
//	go install github.com/gwillem/digrig/cmd/digrig@latest
//
// # Usage
//
// Assign and calibrate the servo-driven devices:
//
//	digrig setup
//
// Check that every device is found:
//
//	digrig status
//
// Then run the controller:
//
//	digrig run
//
// Try it without hardware using in-memory devices:
//
//	digrig run --bench
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/digrig: CLI with setup, run and status commands
//   - pkg/excavate: Phase controller, operator commands and tick runner
//   - pkg/pacing: Extension pacing tied to rotation speed
//   - pkg/safety: Storage-full and travel-exhausted checks
//   - pkg/equipment: Equipment registry
//   - pkg/device: Device kinds, telemetry and directory
//   - pkg/device/bench: In-memory devices
//   - pkg/servo: Feetech serial-bus servo devices
//   - pkg/status: Status lines and logger
//   - pkg/config: Configuration file
package digrig
