package vulkan

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/encoder"
	"github.com/gogpu/rhi/internal/layout"
)

// passes drives the native render pass of a CommandList. Compute and copy
// work share the command buffer outside render passes, so opening and
// closing them records nothing.
type passes struct {
	cl *CommandList
}

var (
	_ encoder.Passes            = passes{}
	_ encoder.AttachmentClearer = passes{}
)

func (p passes) BeginRenderPass(pb encoder.PassBegin) error {
	cl := p.cl
	fb := pb.Framebuffer

	for _, t := range cl.dispatchStorage {
		t.TransitionImageLayoutNonmatching(t.FullRange(), rhi.TransitionBackLayout(t.Usage()), cl.emit(t))
	}
	clear(cl.dispatchStorage)
	cl.dispatchStorage = cl.dispatchStorage[:0]

	rp := RenderPass{
		Framebuffer: fb,
		First:       pb.First,
		Color:       make([]AttachmentLoad, len(fb.ColorTargets())),
	}
	w, h := fb.RenderableExtent()
	rp.Area = rhi.Rect{Width: w, Height: h}

	for i, a := range fb.ColorTargets() {
		cl.transition(a.Target, attachmentRange(a), layout.ColorAttachment)
		if c, ok := pb.Clears.ColorAt(i); ok {
			rp.Color[i] = AttachmentLoad{Op: LoadOpClear, Color: c}
		}
	}
	if d := fb.DepthTarget(); d != nil {
		cl.transition(d.Target, attachmentRange(*d), layout.DepthStencilAttachment)
		if dc := pb.Clears.Depth; dc.Set {
			rp.Depth = AttachmentLoad{Op: LoadOpClear, Depth: dc.Depth, Stencil: dc.Stencil}
		}
	}

	cl.cb.BeginRenderPass(rp)
	cl.fbRendered = true
	return nil
}

func (p passes) EndRenderPass() error {
	p.cl.cb.EndRenderPass()
	// Later passes may read what this one wrote.
	p.cl.cb.PipelineBarrier(layout.StageBottomOfPipe, layout.StageTopOfPipe, nil, nil)
	return nil
}

func (passes) BeginCompute() error { return nil }
func (passes) EndCompute() error   { return nil }
func (passes) BeginCopy() error    { return nil }
func (passes) EndCopy() error      { return nil }

// ClearColorAttachment clears the whole color attachment index.
func (p passes) ClearColorAttachment(fb *rhi.Framebuffer, index uint32, c gputypes.Color) error {
	a := fb.ColorTargets()[index]
	w, h, _ := a.Target.MipDimensions(a.MipLevel)
	p.cl.cb.ClearAttachments([]ClearAttachment{{
		Aspect: layout.AspectColor,
		Index:  index,
		Color:  c,
	}}, rhi.Rect{Width: w, Height: h})
	return nil
}

// ClearDepthStencilAttachment clears depth, and stencil when the format has
// it, over the renderable extent.
func (p passes) ClearDepthStencilAttachment(fb *rhi.Framebuffer, depth float32, stencil uint8) error {
	w, h := fb.RenderableExtent()
	if w == 0 || h == 0 {
		return nil
	}
	aspect := layout.AspectDepth
	if fb.DepthTarget().Target.Format().HasStencil() {
		aspect |= layout.AspectStencil
	}
	p.cl.cb.ClearAttachments([]ClearAttachment{{
		Aspect:  aspect,
		Depth:   depth,
		Stencil: stencil,
	}}, rhi.Rect{Width: w, Height: h})
	return nil
}

// ClearColorTarget clears color attachment index of the bound framebuffer.
func (cl *CommandList) ClearColorTarget(index uint32, c gputypes.Color) error {
	if err := cl.Check("clear color target"); err != nil {
		return err
	}
	return cl.enc.ClearColor(index, c)
}

// ClearDepthStencil clears the depth attachment of the bound framebuffer.
func (cl *CommandList) ClearDepthStencil(depth float32, stencil uint8) error {
	if err := cl.Check("clear depth stencil"); err != nil {
		return err
	}
	return cl.enc.ClearDepthStencil(depth, stencil)
}
