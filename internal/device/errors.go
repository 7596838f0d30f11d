package device

import "errors"

// Sentinel errors for device operations.
//
// These are returned (usually wrapped with context via fmt.Errorf and %w)
// by Manager, Sensor and the persistence gateway. Callers should test with
// errors.Is() rather than string comparison.
var (
	// ErrNotFound indicates the named device is not registered.
	ErrNotFound = errors.New("device: not found")

	// ErrExists indicates a device with the same name is already registered.
	ErrExists = errors.New("device: already exists")

	// ErrWrongType indicates the named device is not the variant the
	// operation requires (e.g. reading sensor data from a switch).
	ErrWrongType = errors.New("device: wrong type")

	// ErrInvalidSampleRate indicates a sample rate below one second.
	ErrInvalidSampleRate = errors.New("device: sample rate must be at least 1 second")

	// ErrNotSupported indicates the device exists and is the right family
	// but rejects the operation, such as commanding a passive switch.
	ErrNotSupported = errors.New("device: operation not supported")

	// ErrReadTimeout indicates a bounded sensor read did not complete in time.
	ErrReadTimeout = errors.New("device: read timed out")

	// ErrPersistence indicates the durable store rejected or failed a write.
	// In-memory state is still mutated when this is returned from a Manager
	// operation; the fleet stays available even when the store is not.
	ErrPersistence = errors.New("device: persistence failure")

	// ErrInvalidName indicates an empty or otherwise unusable device name.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidBounds indicates a sensor range where min exceeds max.
	ErrInvalidBounds = errors.New("device: min must not exceed max")
)
