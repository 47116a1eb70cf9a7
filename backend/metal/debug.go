package metal

import (
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/encoder"
)

// activeEncoder returns the open encoder, checking blit, then compute,
// then render. It returns nil when none is open.
func (cl *CommandList) activeEncoder() CommandEncoder {
	switch cl.enc.Mode() {
	case encoder.ModeCopy:
		return cl.blit
	case encoder.ModeCompute:
		return cl.compute
	case encoder.ModeRender:
		return cl.render
	}
	return nil
}

// PushDebugGroup opens a labeled region on the open encoder. With no
// encoder open the label is dropped.
func (cl *CommandList) PushDebugGroup(label string) error {
	if err := cl.Check("push debug group"); err != nil {
		return err
	}
	if e := cl.activeEncoder(); e != nil {
		e.PushDebugGroup(label)
		return nil
	}
	rhi.Logger().Debug("metal: debug group dropped, no open encoder", "label", label)
	return nil
}

// PopDebugGroup closes the innermost region of the open encoder.
func (cl *CommandList) PopDebugGroup() error {
	if err := cl.Check("pop debug group"); err != nil {
		return err
	}
	if e := cl.activeEncoder(); e != nil {
		e.PopDebugGroup()
	}
	return nil
}

// InsertDebugMarker records a signpost on the open encoder.
func (cl *CommandList) InsertDebugMarker(label string) error {
	if err := cl.Check("insert debug marker"); err != nil {
		return err
	}
	if e := cl.activeEncoder(); e != nil {
		e.InsertDebugSignpost(label)
	}
	return nil
}
