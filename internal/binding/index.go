package binding

import "github.com/gogpu/rhi"

// Space is one native binding index space.
type Space uint8

const (
	// SpaceBuffer holds uniform and structured buffers.
	SpaceBuffer Space = iota
	// SpaceTexture holds read-only and read-write textures.
	SpaceTexture
	// SpaceSampler holds samplers.
	SpaceSampler
	// SpaceUnified holds every element kind in declaration order.
	SpaceUnified
)

// count returns the number of slots l occupies in space.
func (sp Space) count(l *rhi.ResourceLayout) uint32 {
	switch sp {
	case SpaceBuffer:
		return l.BufferCount()
	case SpaceTexture:
		return l.TextureCount()
	case SpaceSampler:
		return l.SamplerCount()
	default:
		return uint32(l.Len())
	}
}

// SpaceOf returns the space an element of kind occupies.
func SpaceOf(kind rhi.ResourceKind) Space {
	switch {
	case kind.IsBuffer():
		return SpaceBuffer
	case kind.IsTexture():
		return SpaceTexture
	default:
		return SpaceSampler
	}
}

// GetBase returns the first native index of set in space: the total slot
// count of every layout below set.
func GetBase(layouts []*rhi.ResourceLayout, set int, space Space) uint32 {
	var base uint32
	for _, l := range layouts[:set] {
		base += space.count(l)
	}
	return base
}

// VertexBufferIndex returns the native buffer index of vertex buffer slot.
// Under the improved model vertex buffers follow every resource-set buffer;
// under the legacy model they start at zero.
func VertexBufferIndex(model rhi.BindingModel, nonVertexBufferCount, slot uint32) uint32 {
	if model == rhi.BindingModelImproved {
		return nonVertexBufferCount + slot
	}
	return slot
}

// BufferIndex returns the native index of a resource-set buffer at
// base + slot. Under the legacy model buffers visible to the vertex stage
// are moved past the vertexBufferCount vertex buffers.
func BufferIndex(model rhi.BindingModel, stage Stage, vertexBufferCount, base, slot uint32) uint32 {
	if stage == StageVertex && model != rhi.BindingModelImproved {
		return vertexBufferCount + base + slot
	}
	return base + slot
}
