package metal

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/encoder"
)

// passes creates and ends the native encoders of a CommandList. Metal
// cannot clear inside an open pass, so every queued clear becomes a load
// action of the next pass.
type passes struct {
	cl *CommandList
}

var _ encoder.Passes = passes{}

func (p passes) BeginRenderPass(pb encoder.PassBegin) error {
	desc := NewRenderPassDescriptor(pb.Framebuffer)
	for i := range desc.Color {
		if c, ok := pb.Clears.ColorAt(i); ok {
			desc.Color[i].Load = LoadActionClear
			desc.Color[i].ClearColor = c
		}
	}
	if dc := pb.Clears.Depth; dc.Set && desc.Depth != nil {
		desc.Depth.Load = LoadActionClear
		desc.Depth.ClearDepth = dc.Depth
		if desc.Stencil != nil {
			desc.Stencil.Load = LoadActionClear
			desc.Stencil.ClearStencil = dc.Stencil
		}
	}
	p.cl.render = p.cl.sub.cb.RenderCommandEncoder(desc)
	return nil
}

func (p passes) EndRenderPass() error {
	p.cl.render.EndEncoding()
	p.cl.render = nil
	return nil
}

func (p passes) BeginCompute() error {
	p.cl.compute = p.cl.sub.cb.ComputeCommandEncoder()
	return nil
}

func (p passes) EndCompute() error {
	p.cl.compute.EndEncoding()
	p.cl.compute = nil
	return nil
}

func (p passes) BeginCopy() error {
	p.cl.blit = p.cl.sub.cb.BlitCommandEncoder()
	return nil
}

func (p passes) EndCopy() error {
	p.cl.blit.EndEncoding()
	p.cl.blit = nil
	return nil
}

// ClearColorTarget queues a clear of color attachment index. An open
// render pass is ended; the clear is applied when the next one begins.
func (cl *CommandList) ClearColorTarget(index uint32, c gputypes.Color) error {
	if err := cl.Check("clear color target"); err != nil {
		return err
	}
	return cl.enc.ClearColor(index, c)
}

// ClearDepthStencil queues a clear of the depth attachment, and of stencil
// when the format has it.
func (cl *CommandList) ClearDepthStencil(depth float32, stencil uint8) error {
	if err := cl.Check("clear depth stencil"); err != nil {
		return err
	}
	return cl.enc.ClearDepthStencil(depth, stencil)
}

// SetFramebuffer switches the render target. A previous framebuffer that
// never had a pass gets one so its queued clears are applied. Viewports
// and scissors reset to cover fb.
func (cl *CommandList) SetFramebuffer(fb *rhi.Framebuffer) error {
	if err := cl.Base.SetFramebuffer(fb); err != nil {
		return err
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
