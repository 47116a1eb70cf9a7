package backend

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/rhi"
)

// Factory creates a backend instance.
type Factory func() Backend

// registry holds registered backends. Priority order for selection (first
// available wins): Vulkan > Metal.
var registry = gpucontext.NewRegistry[Backend](gpucontext.WithPriority(Vulkan, Metal))

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registry.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the names of the registered backends.
func Available() []string {
	return registry.Available()
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	return registry.Get(name)
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() Backend {
	name := registry.BestName()
	if name == "" {
		return nil
	}
	b := registry.Get(name)
	if b != nil {
		rhi.Logger().Info("backend: selected", "name", name, "available", registry.Count())
	}
	return b
}

// MustDefault returns the default backend or panics.
func MustDefault() Backend {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// NewCommandList creates a command list for dev on the named backend, or
// on the default backend when name is empty.
func NewCommandList(name string, dev rhi.Device, opts ...rhi.CommandListOption) (rhi.CommandList, error) {
	var b Backend
	if name == "" {
		b = Default()
	} else {
		b = Get(name)
	}
	if b == nil {
		if name == "" {
			return nil, ErrBackendNotAvailable
		}
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return b.NewCommandList(dev, opts...)
}
