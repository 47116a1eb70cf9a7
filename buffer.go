package rhi

import "github.com/gogpu/wgpu/hal"

// Buffer is a linear GPU allocation.
type Buffer struct {
	resource
	size   uint64
	usage  BufferUsage
	native hal.Buffer
}

// NewBuffer wraps a native buffer. release runs once the last reference is
// dropped and typically destroys native; it may be nil.
func NewBuffer(size uint64, usage BufferUsage, native hal.Buffer, release func()) *Buffer {
	return &Buffer{
		resource: newResource(release),
		size:     size,
		usage:    usage,
		native:   native,
	}
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the declared usage flags.
func (b *Buffer) Usage() BufferUsage { return b.usage }

// HAL returns the native buffer, or nil for buffers not backed by HAL.
func (b *Buffer) HAL() hal.Buffer { return b.native }

// IsStaging reports whether the buffer is host-visible staging memory.
func (b *Buffer) IsStaging() bool {
	return b.usage&(BufferUsageStagingRead|BufferUsageStagingWrite) != 0
}

// BufferRange is a bindable window of a buffer. A zero Size covers the
// rest of the buffer.
type BufferRange struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

// Len returns the range size, resolving a zero Size to the buffer tail.
func (r BufferRange) Len() uint64 {
	if r.Size == 0 && r.Buffer != nil {
		return r.Buffer.size - r.Offset
	}
	return r.Size
}
