package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gapi"
)

// Factory creates a new, uninitialized backend instance.
type Factory func() gapi.GAPI

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{NameNative}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) gapi.GAPI {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() gapi.GAPI {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			b := factory()
			if b != nil {
				return b
			}
		}
	}

	// Fallback: first available by name, so the choice is stable.
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if b := backends[name](); b != nil {
			return b
		}
	}

	return nil
}

// MustDefault returns the default backend or panics.
func MustDefault() gapi.GAPI {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// InitDefault creates and initializes the default backend.
func InitDefault() (gapi.GAPI, error) {
	b := Default()
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	if err := b.Initialize(); err != nil {
		return nil, fmt.Errorf("backend: initialize: %w", err)
	}
	gapi.Logger().Debug("backend: initialized default backend")
	return b, nil
}

// Init creates and initializes the backend registered as name.
func Init(name string) (gapi.GAPI, error) {
	b := Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	if err := b.Initialize(); err != nil {
		return nil, fmt.Errorf("backend: initialize %s: %w", name, err)
	}
	return b, nil
}
