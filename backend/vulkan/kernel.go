package vulkan

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/internal/shader"
)

// copyKernel holds the compute pipeline that copies byte ranges the native
// buffer copy cannot address.
type copyKernel struct {
	dev            hal.Device
	module         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline
}

func newCopyKernel(dev hal.Device) (*copyKernel, error) {
	spirv, err := shader.CopyBufferSPIRV()
	if err != nil {
		return nil, err
	}
	k := &copyKernel{dev: dev}
	k.module, err = dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "rhi copy_buffer",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("vulkan: create copy kernel module: %w", err)
	}
	k.bindLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "rhi copy_buffer",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    shader.CopyBindingSrc,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    shader.CopyBindingDst,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
			{
				Binding:    shader.CopyBindingParams,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("vulkan: create copy kernel bind layout: %w", err)
	}
	k.pipelineLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rhi copy_buffer",
		BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("vulkan: create copy kernel pipeline layout: %w", err)
	}
	k.pipeline, err = dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "rhi copy_buffer",
		Layout:  k.pipelineLayout,
		Compute: hal.ComputeState{Module: k.module, EntryPoint: shader.CopyBufferEntryPoint},
	})
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("vulkan: create copy kernel pipeline: %w", err)
	}
	return k, nil
}

// Destroy releases the kernel objects, pipeline first.
func (k *copyKernel) Destroy() {
	if k.pipeline != nil {
		k.dev.DestroyComputePipeline(k.pipeline)
	}
	if k.pipelineLayout != nil {
		k.dev.DestroyPipelineLayout(k.pipelineLayout)
	}
	if k.bindLayout != nil {
		k.dev.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.module != nil {
		k.dev.DestroyShaderModule(k.module)
	}
	*k = copyKernel{dev: k.dev}
}
