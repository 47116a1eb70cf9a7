package metal

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/binding"
)

// SetPipeline binds p. Nothing is recorded until the next draw or
// dispatch, which applies only the state that differs from the pipeline
// last applied to the open encoder.
func (cl *CommandList) SetPipeline(p *rhi.Pipeline) error {
	changed, err := cl.Base.SetPipeline(p)
	if err != nil || !changed {
		return err
	}
	n := len(p.ResourceLayouts())
	if p.IsCompute() {
		cl.computeSets.Resize(n)
		cl.computeSets.Invalidate()
	} else {
		cl.graphicsSets.Resize(n)
		cl.graphicsSets.Invalidate()
		cl.vertex.Resize(int(p.VertexBufferCount()))
		cl.vertex.Invalidate()
	}
	cl.track(p)
	return nil
}

// SetGraphicsResourceSet binds set at slot for draws.
func (cl *CommandList) SetGraphicsResourceSet(slot uint32, set *rhi.ResourceSet, dynamicOffsets []uint32) error {
	if err := cl.Base.SetResourceSet(false, slot, set, dynamicOffsets); err != nil {
		return err
	}
	cl.graphicsSets.Bind(int(slot), set, dynamicOffsets)
	return nil
}

// SetComputeResourceSet binds set at slot for dispatches.
func (cl *CommandList) SetComputeResourceSet(slot uint32, set *rhi.ResourceSet, dynamicOffsets []uint32) error {
	if err := cl.Base.SetResourceSet(true, slot, set, dynamicOffsets); err != nil {
		return err
	}
	cl.computeSets.Bind(int(slot), set, dynamicOffsets)
	return nil
}

// SetVertexBuffer records a vertex buffer; it is bound at the next draw.
func (cl *CommandList) SetVertexBuffer(index uint32, buf *rhi.Buffer, offset uint64) error {
	if err := cl.Base.SetVertexBuffer(index, buf, offset); err != nil {
		return err
	}
	cl.vertex.Set(int(index), buf, offset)
	return nil
}

// SetIndexBuffer records the index buffer used by indexed draws. Metal
// takes it as a draw argument, so nothing is bound here.
func (cl *CommandList) SetIndexBuffer(buf *rhi.Buffer, format gputypes.IndexFormat, offset uint64) error {
	if err := cl.Base.SetIndexBuffer(buf, offset); err != nil {
		return err
	}
	cl.indexBuf, cl.indexFormat, cl.indexOffset = buf, format, offset
	cl.track(buf)
	return nil
}

// applyGraphicsPipeline sets the fixed-function state of p that differs
// from the pipeline last applied to the render encoder. Depth and stencil
// state only exist when the framebuffer has a depth target.
func (cl *CommandList) applyGraphicsPipeline(p *rhi.Pipeline) {
	enc, last := cl.render, cl.lastGraphics
	s := p.State()
	var ls rhi.FixedFunctionState
	if last != nil {
		ls = last.State()
	}
	if p != last {
		enc.SetRenderPipelineState(p)
	}
	if last == nil || s.CullMode != ls.CullMode {
		enc.SetCullMode(s.CullMode)
	}
	if last == nil || s.FrontFace != ls.FrontFace {
		enc.SetFrontFacing(s.FrontFace)
	}
	if last == nil || s.FillMode != ls.FillMode {
		enc.SetTriangleFillMode(s.FillMode)
	}
	if last == nil || s.BlendConstant != ls.BlendConstant {
		enc.SetBlendColor(s.BlendConstant)
	}
	if cl.Framebuffer().DepthTarget() != nil {
		if p != last {
			enc.SetDepthStencilState(p)
		}
		if last == nil || s.DepthClipEnabled != ls.DepthClipEnabled {
			enc.SetDepthClipMode(s.DepthClipEnabled)
		}
		if last == nil || s.StencilReference != ls.StencilReference {
			enc.SetStencilReferenceValue(s.StencilReference)
		}
	}
	cl.lastGraphics = p
}

// flushViewports applies changed viewports, and changed scissors when p
// enables the scissor test.
func (cl *CommandList) flushViewports(p *rhi.Pipeline) {
	if cl.TakeViewportsDirty() {
		cl.render.SetViewports(cl.Viewports())
	}
	if p.State().ScissorTestEnabled && cl.TakeScissorsDirty() {
		cl.render.SetScissorRects(cl.ScissorRects())
	}
}

// flushVertexBuffers binds changed vertex buffers at their native index.
// A buffer that only moved gets an offset update.
func (cl *CommandList) flushVertexBuffers(p *rhi.Pipeline) {
	model := cl.BindingModel()
	cl.vertex.Flush(func(slot int, buf *rhi.Buffer, offset uint64, act binding.Action) {
		idx := binding.VertexBufferIndex(model, p.NonVertexBufferCount(), uint32(slot))
		if act == binding.ActionOffset {
			cl.render.SetVertexBufferOffset(offset, idx)
			return
		}
		cl.render.SetVertexBuffer(buf, offset, idx)
		cl.track(buf)
	})
}

// flushSets activates every set not yet applied to the open encoder. The
// sets and the resources they hold are tracked for the recording.
func (cl *CommandList) flushSets(t binding.Target, sets *binding.Sets, b binding.Binder) {
	info := cl.cmds.Info()
	sets.Flush(func(slot int, rec binding.Record) {
		info.AddResource(rec.Set.RefCount())
		info.AddResources(rec.Set.RefCounts())
		cl.cache.Activate(t, slot, rec, b)
	})
}

// renderBinder issues resource bindings on the render encoder.
type renderBinder struct{ enc RenderCommandEncoder }

func (b renderBinder) BindBuffer(stage binding.Stage, index uint32, r rhi.BufferRange, offsetOnly bool) {
	switch {
	case stage == binding.StageVertex && offsetOnly:
		b.enc.SetVertexBufferOffset(r.Offset, index)
	case stage == binding.StageVertex:
		b.enc.SetVertexBuffer(r.Buffer, r.Offset, index)
	case offsetOnly:
		b.enc.SetFragmentBufferOffset(r.Offset, index)
	default:
		b.enc.SetFragmentBuffer(r.Buffer, r.Offset, index)
	}
}

func (b renderBinder) BindTexture(stage binding.Stage, index uint32, v *rhi.TextureView) {
	if stage == binding.StageVertex {
		b.enc.SetVertexTexture(v, index)
		return
	}
	b.enc.SetFragmentTexture(v, index)
}

func (b renderBinder) BindSampler(stage binding.Stage, index uint32, s *rhi.Sampler) {
	if stage == binding.StageVertex {
		b.enc.SetVertexSamplerState(s, index)
		return
	}
	b.enc.SetFragmentSamplerState(s, index)
}

// computeBinder issues resource bindings on the compute encoder.
type computeBinder struct{ enc ComputeCommandEncoder }

func (b computeBinder) BindBuffer(_ binding.Stage, index uint32, r rhi.BufferRange, offsetOnly bool) {
	if offsetOnly {
		b.enc.SetBufferOffset(r.Offset, index)
		return
	}
	b.enc.SetBuffer(r.Buffer, r.Offset, index)
}

func (b computeBinder) BindTexture(_ binding.Stage, index uint32, v *rhi.TextureView) {
	b.enc.SetTexture(v, index)
}

func (b computeBinder) BindSampler(_ binding.Stage, index uint32, s *rhi.Sampler) {
	b.enc.SetSamplerState(s, index)
}
