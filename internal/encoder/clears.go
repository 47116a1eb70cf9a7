package encoder

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// ColorClear is a queued clear of one color attachment.
type ColorClear struct {
	Set   bool
	Value gputypes.Color
}

// DepthClear is a queued clear of the depth attachment.
type DepthClear struct {
	Set     bool
	Depth   float32
	Stencil uint8
}

// Clears holds the clears queued for the next render pass, one entry per
// color attachment plus the depth attachment.
type Clears struct {
	Color []ColorClear
	Depth DepthClear
}

func (c *Clears) reset(colors int) {
	c.Color = make([]ColorClear, colors)
	c.Depth = DepthClear{}
}

// Any reports whether any clear is queued.
func (c Clears) Any() bool {
	if c.Depth.Set {
		return true
	}
	for _, cc := range c.Color {
		if cc.Set {
			return true
		}
	}
	return false
}

// Complete reports whether every attachment of fb has a queued clear.
// A framebuffer without attachments is never complete.
func (c Clears) Complete(fb *rhi.Framebuffer) bool {
	if fb.AttachmentCount() == 0 {
		return false
	}
	if fb.DepthTarget() != nil && !c.Depth.Set {
		return false
	}
	if len(c.Color) < len(fb.ColorTargets()) {
		return false
	}
	for _, cc := range c.Color {
		if !cc.Set {
			return false
		}
	}
	return true
}

// ColorAt returns the queued clear of color attachment i.
func (c Clears) ColorAt(i int) (gputypes.Color, bool) {
	if i < len(c.Color) && c.Color[i].Set {
		return c.Color[i].Value, true
	}
	return gputypes.Color{}, false
}
