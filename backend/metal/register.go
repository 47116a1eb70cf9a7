package metal

import (
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

// The registered backend serves devices that implement Device.
func init() {
	backend.Register(backend.Metal, func() backend.Backend { return metalBackend{} })
}

type metalBackend struct{}

func (metalBackend) Name() string { return backend.Metal }

func (metalBackend) NewCommandList(dev rhi.Device, opts ...rhi.CommandListOption) (rhi.CommandList, error) {
	return NewCommandList(dev, WithCommandListOptions(opts...))
}
