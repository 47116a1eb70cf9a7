// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/layout"
)

// CommandBuffer is a native command buffer with explicit barriers. The
// command list drives it in Vulkan order: every image is in the layout a
// command expects before the command is recorded, and render passes never
// contain barriers or transfers.
//
// Implementations need not be safe for concurrent use; a command buffer is
// recorded by one goroutine and submitted by the device.
type CommandBuffer interface {
	// Begin starts recording. Reset must have been called on a buffer that
	// was recorded before.
	Begin() error
	End() error
	Reset() error

	BeginRenderPass(rp RenderPass)
	EndRenderPass()

	// ClearAttachments clears attachments of the open render pass inside
	// rect.
	ClearAttachments(clears []ClearAttachment, rect rhi.Rect)

	PipelineBarrier(src, dst layout.Stage, memory []MemoryBarrier, images []ImageBarrier)

	// BindPipeline binds p at the graphics or compute bind point, as
	// p.IsCompute reports. Fixed-function state of a graphics pipeline
	// that the native API keeps dynamic is applied from p.State().
	BindPipeline(p *rhi.Pipeline)
	BindResourceSets(p *rhi.Pipeline, first uint32, sets []*rhi.ResourceSet, dynamicOffsets []uint32)
	BindVertexBuffers(first uint32, bufs []*rhi.Buffer, offsets []uint64)
	BindIndexBuffer(buf *rhi.Buffer, offset uint64, format gputypes.IndexFormat)
	SetViewports(first uint32, vps []rhi.Viewport)
	SetScissors(first uint32, rects []rhi.Rect)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	DrawIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32)
	DrawIndexedIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32)
	Dispatch(x, y, z uint32)
	DispatchIndirect(buf *rhi.Buffer, offset uint64)

	CopyBuffer(src, dst *rhi.Buffer, regions []BufferCopy)
	CopyImage(src, dst *rhi.Texture, regions []ImageCopy)
	CopyBufferToImage(src *rhi.Buffer, dst *rhi.Texture, regions []BufferImageCopy)
	CopyImageToBuffer(src *rhi.Texture, dst *rhi.Buffer, regions []BufferImageCopy)
	BlitImage(src, dst *rhi.Texture, regions []ImageBlit)
	ResolveImage(src, dst *rhi.Texture, region ImageResolve)

	BeginDebugLabel(label string)
	EndDebugLabel()
	InsertDebugLabel(label string)
}

// CommandBufferAllocator creates and frees native command buffers. A device
// that implements it is used by NewCommandList without further setup.
type CommandBufferAllocator interface {
	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)
}

// LoadOp is what a render pass does with an attachment's previous
// contents.
type LoadOp uint8

const (
	// LoadOpLoad keeps the previous contents.
	LoadOpLoad LoadOp = iota
	// LoadOpClear replaces the contents with a clear value.
	LoadOpClear
)

func (op LoadOp) String() string {
	if op == LoadOpClear {
		return "Clear"
	}
	return "Load"
}

// AttachmentLoad is the load operation of one attachment.
type AttachmentLoad struct {
	Op      LoadOp
	Color   gputypes.Color
	Depth   float32
	Stencil uint8
}

// RenderPass describes a render pass to begin.
type RenderPass struct {
	Framebuffer *rhi.Framebuffer

	// First is set for the first pass since the framebuffer was bound.
	First bool

	Color []AttachmentLoad
	Depth AttachmentLoad
	Area  rhi.Rect
}

// Cleared reports whether any attachment is cleared on load.
func (rp RenderPass) Cleared() bool {
	if rp.Depth.Op == LoadOpClear {
		return true
	}
	for _, c := range rp.Color {
		if c.Op == LoadOpClear {
			return true
		}
	}
	return false
}

// ClearAttachment clears one attachment inside a render pass. Index names
// the color attachment unless Aspect includes depth or stencil.
type ClearAttachment struct {
	Aspect  layout.Aspect
	Index   uint32
	Color   gputypes.Color
	Depth   float32
	Stencil uint8
}

// MemoryBarrier orders global memory accesses.
type MemoryBarrier struct {
	SrcAccess layout.Access
	DstAccess layout.Access
}

// ImageBarrier is a layout transition of a subresource range of Texture.
type ImageBarrier struct {
	Texture *rhi.Texture
	layout.Barrier
}

// BufferCopy is one region of a buffer copy.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// Offset3D is a texel position.
type Offset3D struct {
	X, Y, Z uint32
}

// Extent3D is a texel extent.
type Extent3D struct {
	Width, Height, Depth uint32
}

// ImageSubresource selects layers of one mip level.
type ImageSubresource struct {
	Aspect         layout.Aspect
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ImageCopy is one region of an image-to-image copy.
type ImageCopy struct {
	SrcSubresource ImageSubresource
	SrcOffset      Offset3D
	DstSubresource ImageSubresource
	DstOffset      Offset3D
	Extent         Extent3D
}

// BufferImageCopy is one region of a copy between a buffer and an image.
// BufferRowLength and BufferImageHeight are in texels.
type BufferImageCopy struct {
	BufferOffset      uint64
	BufferRowLength   uint32
	BufferImageHeight uint32
	Subresource       ImageSubresource
	ImageOffset       Offset3D
	ImageExtent       Extent3D
}

// ImageBlit is one region of a filtered image blit.
type ImageBlit struct {
	SrcSubresource ImageSubresource
	SrcOffsets     [2]Offset3D
	DstSubresource ImageSubresource
	DstOffsets     [2]Offset3D
}

// ImageResolve is a multisample resolve region.
type ImageResolve struct {
	SrcSubresource ImageSubresource
	DstSubresource ImageSubresource
	Extent         Extent3D
}
