package vulkan

import "github.com/gogpu/rhi"

// PushDebugGroup opens a labeled region. Without native debug marker
// support it records nothing.
func (cl *CommandList) PushDebugGroup(label string) error {
	if err := cl.Check("push debug group"); err != nil {
		return err
	}
	if !cl.debugMarkers() {
		return nil
	}
	cl.cb.BeginDebugLabel(label)
	cl.debugDepth++
	return nil
}

// PopDebugGroup closes the innermost open region.
func (cl *CommandList) PopDebugGroup() error {
	if err := cl.Check("pop debug group"); err != nil {
		return err
	}
	if cl.debugDepth == 0 {
		return nil
	}
	cl.cb.EndDebugLabel()
	cl.debugDepth--
	return nil
}

// InsertDebugMarker records a single label.
func (cl *CommandList) InsertDebugMarker(label string) error {
	if err := cl.Check("insert debug marker"); err != nil {
		return err
	}
	if cl.debugMarkers() {
		cl.cb.InsertDebugLabel(label)
	}
	return nil
}

func (cl *CommandList) debugMarkers() bool {
	if cl.Features().DebugMarkers {
		return true
	}
	if !cl.warnedNoDebug {
		cl.warnedNoDebug = true
		rhi.Logger().Warn("vulkan: debug markers not supported, labels dropped", "list", cl.Name())
	}
	return false
}
