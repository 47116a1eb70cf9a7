package rhi

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PipelineDescriptor describes the state a command list consumes from a
// pipeline. Shader code and vertex formats are owned by the native object.
type PipelineDescriptor struct {
	ResourceLayouts []*ResourceLayout
	Topology        gputypes.PrimitiveTopology
	State           FixedFunctionState
	BindingModel    BindingModel

	// VertexBufferCount is the number of vertex buffer layouts.
	VertexBufferCount uint32

	// Outputs describes the framebuffers the pipeline renders into.
	Outputs OutputDescription

	// ThreadGroupSize is the compute workgroup size.
	ThreadGroupSize [3]uint32
}

// Pipeline is an immutable graphics or compute pipeline.
type Pipeline struct {
	resource
	desc                 PipelineDescriptor
	compute              bool
	nonVertexBufferCount uint32
	render               hal.RenderPipeline
	computeNative        hal.ComputePipeline
	layout               hal.PipelineLayout
}

// NewGraphicsPipeline wraps a native render pipeline. layout is the native
// pipeline layout the command list binds sets against; either may be nil.
func NewGraphicsPipeline(desc PipelineDescriptor, native hal.RenderPipeline, layout hal.PipelineLayout, release func()) *Pipeline {
	p := newPipeline(desc, layout, release)
	p.render = native
	return p
}

// NewComputePipeline wraps a native compute pipeline.
func NewComputePipeline(desc PipelineDescriptor, native hal.ComputePipeline, layout hal.PipelineLayout, release func()) *Pipeline {
	p := newPipeline(desc, layout, release)
	p.compute = true
	p.computeNative = native
	return p
}

func newPipeline(desc PipelineDescriptor, layout hal.PipelineLayout, release func()) *Pipeline {
	desc.ResourceLayouts = append([]*ResourceLayout(nil), desc.ResourceLayouts...)
	p := &Pipeline{
		resource: newResource(release),
		desc:     desc,
		layout:   layout,
	}
	for _, l := range desc.ResourceLayouts {
		p.nonVertexBufferCount += l.BufferCount()
	}
	for i := range p.desc.ThreadGroupSize {
		p.desc.ThreadGroupSize[i] = max(p.desc.ThreadGroupSize[i], 1)
	}
	return p
}

// IsCompute reports whether p is a compute pipeline.
func (p *Pipeline) IsCompute() bool { return p.compute }

// ResourceLayouts returns the ordered set layouts. The slice must not be
// modified.
func (p *Pipeline) ResourceLayouts() []*ResourceLayout { return p.desc.ResourceLayouts }

// Topology returns the primitive topology.
func (p *Pipeline) Topology() gputypes.PrimitiveTopology { return p.desc.Topology }

// State returns the fixed-function snapshot.
func (p *Pipeline) State() FixedFunctionState { return p.desc.State }

// BindingModel returns the declared binding model, which may be
// BindingModelDefault.
func (p *Pipeline) BindingModel() BindingModel { return p.desc.BindingModel }

// VertexBufferCount returns the number of vertex buffer slots.
func (p *Pipeline) VertexBufferCount() uint32 { return p.desc.VertexBufferCount }

// NonVertexBufferCount returns the number of buffers across all resource
// layouts.
func (p *Pipeline) NonVertexBufferCount() uint32 { return p.nonVertexBufferCount }

// ThreadGroupSize returns the compute workgroup size.
func (p *Pipeline) ThreadGroupSize() [3]uint32 { return p.desc.ThreadGroupSize }

// Outputs returns the output description.
func (p *Pipeline) Outputs() OutputDescription { return p.desc.Outputs }

// HALRender returns the native render pipeline of a graphics pipeline.
func (p *Pipeline) HALRender() hal.RenderPipeline { return p.render }

// HALCompute returns the native compute pipeline of a compute pipeline.
func (p *Pipeline) HALCompute() hal.ComputePipeline { return p.computeNative }

// HALLayout returns the native pipeline layout.
func (p *Pipeline) HALLayout() hal.PipelineLayout { return p.layout }
