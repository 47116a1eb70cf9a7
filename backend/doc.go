// Package backend provides a pluggable command-list backend registry.
//
// Each native API ships as its own package that registers itself on
// import. The registry lets an application pick one by name, or take the
// best available:
//
//	import (
//		"github.com/gogpu/rhi/backend"
//		_ "github.com/gogpu/rhi/backend/metal"
//		_ "github.com/gogpu/rhi/backend/vulkan"
//	)
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get(backend.Metal)
//
//	cl, err := b.NewCommandList(dev, rhi.WithName("main"))
//
// # Available Backends
//
//   - "vulkan": explicit-barrier command buffers with image layout tracking
//   - "metal": exclusive render, compute and blit encoders
//
// When both are registered Default prefers vulkan.
//
// A backend only serves devices that implement its native interface.
// haldevice.Device records HAL command buffers and works with "vulkan";
// "metal" needs a device implementing metal.Device, which this module
// does not ship. NewCommandList reports ErrUnsupportedDevice for any
// other device.
package backend
