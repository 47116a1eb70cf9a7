package vulkan

import (
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

func init() {
	backend.Register(backend.Vulkan, func() backend.Backend { return vulkanBackend{} })
}

type vulkanBackend struct{}

func (vulkanBackend) Name() string { return backend.Vulkan }

func (vulkanBackend) NewCommandList(dev rhi.Device, opts ...rhi.CommandListOption) (rhi.CommandList, error) {
	return NewCommandList(dev, WithCommandListOptions(opts...))
}
