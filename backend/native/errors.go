package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNotInitialized is returned when operations are called before Initialize.
	ErrNotInitialized = errors.New("native: backend not initialized")

	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrBackendUnavailable is returned when the requested HAL backend is
	// not compiled in.
	ErrBackendUnavailable = errors.New("native: HAL backend not available")

	// ErrDeviceLost is returned by operations that need a live device.
	ErrDeviceLost = errors.New("native: device lost")

	// ErrNilDevice is returned when a context is built without a device or queue.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// HAL objects.
	ErrProviderNotHAL = errors.New("native: provider does not expose HAL device")

	// ErrInvalidDimensions is returned when width or height is zero.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrSubmitTimeout is returned when the GPU does not finish a frame in time.
	ErrSubmitTimeout = errors.New("native: GPU wait timed out")
)
