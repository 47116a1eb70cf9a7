package metal

import "github.com/gogpu/rhi"

// Option configures a CommandList.
type Option func(*options)

type options struct {
	list       []rhi.CommandListOption
	copyKernel ComputePipelineState
}

// WithCommandListOptions applies backend-independent options.
func WithCommandListOptions(opts ...rhi.CommandListOption) Option {
	return func(o *options) { o.list = append(o.list, opts...) }
}

// WithUnalignedCopyPipeline sets the kernel used for buffer copies that
// are not 4-byte aligned. The list does not release it. Without this
// option the kernel is compiled from MSL on first use.
func WithUnalignedCopyPipeline(k ComputePipelineState) Option {
	return func(o *options) { o.copyKernel = k }
}
