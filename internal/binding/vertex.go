package binding

import "github.com/gogpu/rhi"

type vertexSlot struct {
	buf          *rhi.Buffer
	offset       uint64
	active       bool
	offsetActive bool
}

// VertexBuffers tracks the vertex buffers set on a command list and which
// of them still need a native call.
type VertexBuffers struct {
	slots []vertexSlot
}

// Len returns the number of slots.
func (v *VertexBuffers) Len() int { return len(v.slots) }

// Resize sets the slot count, keeping existing bindings.
func (v *VertexBuffers) Resize(n int) {
	if n <= len(v.slots) {
		clear(v.slots[n:])
		v.slots = v.slots[:n]
		return
	}
	v.slots = append(v.slots, make([]vertexSlot, n-len(v.slots))...)
}

// Set records buf at offset in slot and reports whether anything changed.
// A different buffer needs a full bind; the same buffer at a new offset
// needs only an offset update.
func (v *VertexBuffers) Set(slot int, buf *rhi.Buffer, offset uint64) bool {
	if slot >= len(v.slots) {
		v.Resize(slot + 1)
	}
	s := &v.slots[slot]
	switch {
	case s.buf != buf:
		*s = vertexSlot{buf: buf, offset: offset}
	case s.offset != offset:
		s.offset = offset
		s.offsetActive = false
	default:
		return false
	}
	return true
}

// Buffer returns the buffer and offset bound at slot.
func (v *VertexBuffers) Buffer(slot int) (*rhi.Buffer, uint64) {
	if slot >= len(v.slots) {
		return nil, 0
	}
	return v.slots[slot].buf, v.slots[slot].offset
}

// Invalidate marks every slot as needing a full bind.
func (v *VertexBuffers) Invalidate() {
	for i := range v.slots {
		v.slots[i].active = false
		v.slots[i].offsetActive = false
	}
}

// Clear drops every binding.
func (v *VertexBuffers) Clear() { clear(v.slots) }

// Flush calls apply for every slot holding a buffer that is not current,
// with ActionBind or ActionOffset, and marks the slot current.
func (v *VertexBuffers) Flush(apply func(slot int, buf *rhi.Buffer, offset uint64, act Action)) {
	for i := range v.slots {
		s := &v.slots[i]
		if s.buf == nil {
			continue
		}
		switch {
		case !s.active:
			apply(i, s.buf, s.offset, ActionBind)
		case !s.offsetActive:
			apply(i, s.buf, s.offset, ActionOffset)
		default:
			continue
		}
		s.active, s.offsetActive = true, true
	}
}
