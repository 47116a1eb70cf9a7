package vulkan

import (
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Option configures a CommandList.
type Option func(*options)

type options struct {
	list  []rhi.CommandListOption
	alloc CommandBufferAllocator
}

// WithCommandListOptions applies backend-independent options.
func WithCommandListOptions(opts ...rhi.CommandListOption) Option {
	return func(o *options) { o.list = append(o.list, opts...) }
}

// WithAllocator sets the command buffer allocator, overriding the one the
// device provides.
func WithAllocator(a CommandBufferAllocator) Option {
	return func(o *options) { o.alloc = a }
}

// halProvider is implemented by devices built over a HAL device, such as
// haldevice.Device.
type halProvider interface {
	HALDevice() hal.Device
	HALQueue() hal.Queue
}
