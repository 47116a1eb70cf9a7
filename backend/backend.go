package backend

import (
	"errors"

	"github.com/gogpu/rhi"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnsupportedDevice is returned by NewCommandList when the device does
	// not provide the native hooks the backend needs.
	ErrUnsupportedDevice = errors.New("backend: device not supported")
)

// Backend names.
const (
	Vulkan = "vulkan"
	Metal  = "metal"
)

// Backend creates command lists for one native API.
//
// Backends are registered via Register() and are selected via Get() or
// Default().
type Backend interface {
	// Name returns the backend identifier ("vulkan", "metal").
	Name() string

	// NewCommandList creates a command list recording for dev. It returns
	// an error wrapping ErrUnsupportedDevice when dev lacks the native
	// hooks of this backend.
	NewCommandList(dev rhi.Device, opts ...rhi.CommandListOption) (rhi.CommandList, error)
}
