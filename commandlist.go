// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"time"

	"github.com/gogpu/gputypes"
)

// CommandList records GPU work for later submission.
//
// A command list is recorded from one goroutine at a time. Every recording
// method is valid only between Begin and End and returns ErrNotRecording
// otherwise. After an error other than ErrNotRecording or
// ErrAlreadyRecording the recording is in an undefined state and should be
// discarded by calling Begin again.
type CommandList interface {
	// Begin starts a recording, reusing a recycled native command buffer
	// when one is available.
	Begin() error

	// End finishes the recording. Clears queued against a framebuffer that
	// never had a pass are applied before End returns.
	End() error

	SetPipeline(p *Pipeline) error
	SetGraphicsResourceSet(slot uint32, set *ResourceSet, dynamicOffsets []uint32) error
	SetComputeResourceSet(slot uint32, set *ResourceSet, dynamicOffsets []uint32) error
	SetVertexBuffer(index uint32, buf *Buffer, offset uint64) error
	SetIndexBuffer(buf *Buffer, format gputypes.IndexFormat, offset uint64) error

	// SetFramebuffer switches the render target. The render pass itself is
	// begun lazily by the first draw or clear.
	SetFramebuffer(fb *Framebuffer) error

	SetViewport(index uint32, vp Viewport) error
	SetFullViewport(index uint32) error
	SetFullViewports() error
	SetScissorRect(index uint32, r Rect) error
	SetFullScissorRect(index uint32) error
	SetFullScissorRects() error

	Draw(vertexCount, instanceCount, vertexStart, instanceStart uint32) error
	DrawIndexed(indexCount, instanceCount, indexStart uint32, vertexOffset int32, instanceStart uint32) error
	DrawIndirect(buf *Buffer, offset uint64, drawCount, stride uint32) error
	DrawIndexedIndirect(buf *Buffer, offset uint64, drawCount, stride uint32) error

	Dispatch(groupsX, groupsY, groupsZ uint32) error
	DispatchIndirect(buf *Buffer, offset uint64) error

	// CopyBuffer copies regions between buffers. Zero-length regions are
	// skipped.
	CopyBuffer(src, dst *Buffer, regions ...BufferCopyCommand) error

	// CopyTexture copies a region between two textures, either of which
	// may be a staging texture.
	CopyTexture(src, dst *Texture, region TextureCopyRegion) error

	// UpdateBuffer stages data and copies it into dst at offset when the
	// recording executes.
	UpdateBuffer(dst *Buffer, offset uint64, data []byte) error

	ResolveTexture(src, dst *Texture) error
	GenerateMipmaps(tex *Texture) error

	// ClearColorTarget clears one color attachment of the current
	// framebuffer. Outside a render pass the clear is queued and folded into
	// the next pass begin.
	ClearColorTarget(index uint32, c gputypes.Color) error
	ClearDepthStencil(depth float32, stencil uint8) error

	PushDebugGroup(label string) error
	PopDebugGroup() error
	InsertDebugMarker(label string) error

	Name() string
	SetName(name string)

	// Dispose releases the list. Native objects are destroyed once every
	// submission of the list retires.
	Dispose()
}

// Device is the part of a graphics device a command list depends on.
type Device interface {
	// SubmitCommands submits a recorded list. fence, when not nil, is
	// signalled once the submission retires.
	SubmitCommands(cl CommandList, fence *Fence) error

	// WaitForFence blocks until f is signalled or timeout elapses.
	WaitForFence(f *Fence, timeout time.Duration) bool

	// GetPooledStagingBuffer returns a host-writable staging buffer of at
	// least minSize bytes that no in-flight recording holds.
	GetPooledStagingBuffer(minSize uint64) (*Buffer, error)

	// ReturnPooledStagingBuffers hands staging buffers back to the pool.
	ReturnPooledStagingBuffers(bufs []*Buffer)

	// ReturnPooledStagingTextures hands staging textures back to the pool.
	ReturnPooledStagingTextures(texs []*Texture)

	// UpdateBuffer copies data into a host-visible buffer immediately.
	UpdateBuffer(dst *Buffer, offset uint64, data []byte) error

	// SetResourceName names res and, best effort, its native object.
	SetResourceName(res Resource, name string)

	Features() Features
}
