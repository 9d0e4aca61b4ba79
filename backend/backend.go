package backend

import "errors"

// Backend names.
const (
	// NameNative is the HAL backend in backend/native.
	NameNative = "native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)
