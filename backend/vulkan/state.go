package vulkan

import (
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/binding"
)

// SetPipeline binds p. A pipeline change binds the native pipeline at once
// and forces every bound set and vertex buffer of its kind to be applied
// again.
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
	cl.cb.BindPipeline(p)
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

// SetIndexBuffer binds the index buffer immediately.
func (cl *CommandList) SetIndexBuffer(buf *rhi.Buffer, format gputypes.IndexFormat, offset uint64) error {
	if err := cl.Base.SetIndexBuffer(buf, offset); err != nil {
		return err
	}
	cl.cb.BindIndexBuffer(buf, offset, format)
	cl.track(buf)
	return nil
}

// SetFramebuffer switches the render target. The previous framebuffer's
// pass ends, its queued clears are applied and its attachments move to
// their final layouts. Viewports and scissors reset to cover fb.
func (cl *CommandList) SetFramebuffer(fb *rhi.Framebuffer) error {
	if err := cl.Base.SetFramebuffer(fb); err != nil {
		return err
	}
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}
	if old := cl.enc.Framebuffer(); old != nil && cl.fbRendered {
		cl.transitionToFinalLayout(old)
	}
	if err := cl.enc.SetFramebuffer(fb); err != nil {
		return err
	}
	cl.track(fb)
	if err := cl.SetFullViewports(); err != nil {
		return err
	}
	return cl.SetFullScissorRects()
}

// flushViewports applies changed viewports and scissors. Viewports are
// flipped vertically when clip space Y points up.
func (cl *CommandList) flushViewports() {
	if cl.TakeViewportsDirty() {
		vps := slices.Clone(cl.Viewports())
		if !cl.Features().ClipSpaceYInverted {
			for i := range vps {
				vps[i].Y += vps[i].Height
				vps[i].Height = -vps[i].Height
			}
		}
		cl.cb.SetViewports(0, vps)
	}
	if cl.TakeScissorsDirty() {
		cl.cb.SetScissors(0, cl.ScissorRects())
	}
}

// flushVertexBuffers rebinds the leading bound vertex buffers in one call
// when any of them changed.
func (cl *CommandList) flushVertexBuffers() {
	dirty := false
	cl.vertex.Flush(func(int, *rhi.Buffer, uint64, binding.Action) { dirty = true })
	if !dirty {
		return
	}
	cl.vbScratch, cl.offScratch = cl.vbScratch[:0], cl.offScratch[:0]
	for i := range cl.vertex.Len() {
		buf, off := cl.vertex.Buffer(i)
		if buf == nil {
			break
		}
		cl.vbScratch = append(cl.vbScratch, buf)
		cl.offScratch = append(cl.offScratch, off)
		cl.track(buf)
	}
	if len(cl.vbScratch) > 0 {
		cl.cb.BindVertexBuffers(0, cl.vbScratch, cl.offScratch)
	}
}

// flushSets binds every changed run of consecutive sets with one native
// call each. The sets and the resources they hold are tracked for the
// recording.
func (cl *CommandList) flushSets(p *rhi.Pipeline, sets *binding.Sets) {
	info := cl.cmds.Info()
	sets.FlushBatches(func(first int, recs []binding.Record) {
		cl.setScratch = cl.setScratch[:0]
		for _, r := range recs {
			cl.setScratch = append(cl.setScratch, r.Set)
			info.AddResource(r.Set.RefCount())
			info.AddResources(r.Set.RefCounts())
		}
		cl.dynScratch = binding.ConcatOffsets(cl.dynScratch[:0], recs)
		cl.cb.BindResourceSets(p, uint32(first), cl.setScratch, cl.dynScratch)
	})
}
