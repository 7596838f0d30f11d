// Package device implements the simulated device fleet: sensors that emit
// drifting numeric readings, command-driven switches, and passive switches
// that toggle themselves.
//
// This package provides:
//   - Device variants (Sensor, Switch, PassiveSwitch) with a uniform
//     read/lifecycle contract
//   - A Manager that owns the name→device map, wires notification hooks,
//     and orchestrates add/remove/enable lifecycle
//   - Timeout-bounded synchronous reads so a stalled device cannot hang
//     its caller
//   - A persistence Gateway (SQLite implementation included) for device
//     metadata and live readings
//
// # Concurrency Model
//
// Each enabled Sensor and PassiveSwitch owns exactly one background
// goroutine producing state on its own cadence. The goroutine is the sole
// writer of the device's mutable state; external callers only read or
// command through the Manager. Stopping a device cancels its goroutine and
// waits for it to exit, so no hook fires after Stop returns.
//
// The Manager's map is guarded by its own lock; notification hooks and
// gateway writes are invoked from many device goroutines concurrently and
// are never serialised by the Manager on a device's behalf.
//
// # Error Handling
//
// Operations return sentinel errors (ErrNotFound, ErrExists, ErrWrongType,
// ...) checkable with errors.Is(). Failures inside a background cycle's
// hooks are logged and swallowed — one bad listener cannot stop a device.
package device
