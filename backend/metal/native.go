// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package metal

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// Device is an rhi.Device that creates Metal-style command buffers.
type Device interface {
	rhi.Device

	// NewCommandBuffer returns a fresh command buffer from the device's
	// queue. Command buffers are recorded and committed once.
	NewCommandBuffer() (CommandBuffer, error)

	// NewComputePipelineState compiles an MSL kernel.
	NewComputePipelineState(source, entryPoint string) (ComputePipelineState, error)
}

// ComputePipelineState is a compiled compute kernel that is not an
// rhi.Pipeline, such as the unaligned buffer copy.
type ComputePipelineState interface {
	Release()
}

// CommandBuffer is a one-shot native command buffer. At most one encoder
// created from it is open at a time; the command list ends each encoder
// before it creates the next.
type CommandBuffer interface {
	RenderCommandEncoder(desc *RenderPassDescriptor) RenderCommandEncoder
	ComputeCommandEncoder() ComputeCommandEncoder
	BlitCommandEncoder() BlitCommandEncoder

	// AddCompletedHandler registers fn to run once the GPU finishes the
	// buffer. It must be called before Commit.
	AddCompletedHandler(fn func())
	Commit() error

	// Release drops the list's reference to the buffer.
	Release()
}

// CommandEncoder is the part every encoder kind shares.
type CommandEncoder interface {
	EndEncoding()
	PushDebugGroup(label string)
	PopDebugGroup()
	InsertDebugSignpost(label string)
}

// RenderCommandEncoder records draws into one render pass.
type RenderCommandEncoder interface {
	CommandEncoder

	SetRenderPipelineState(p *rhi.Pipeline)
	SetDepthStencilState(p *rhi.Pipeline)
	SetCullMode(m gputypes.CullMode)
	SetFrontFacing(f gputypes.FrontFace)
	SetTriangleFillMode(m rhi.FillMode)
	SetBlendColor(c gputypes.Color)
	SetDepthClipMode(clip bool)
	SetStencilReferenceValue(ref uint32)
	SetViewports(vps []rhi.Viewport)
	SetScissorRects(rects []rhi.Rect)

	SetVertexBuffer(buf *rhi.Buffer, offset uint64, index uint32)
	SetVertexBufferOffset(offset uint64, index uint32)
	SetVertexTexture(v *rhi.TextureView, index uint32)
	SetVertexSamplerState(s *rhi.Sampler, index uint32)
	SetFragmentBuffer(buf *rhi.Buffer, offset uint64, index uint32)
	SetFragmentBufferOffset(offset uint64, index uint32)
	SetFragmentTexture(v *rhi.TextureView, index uint32)
	SetFragmentSamplerState(s *rhi.Sampler, index uint32)

	DrawPrimitives(t gputypes.PrimitiveTopology, vertexStart, vertexCount, instanceCount, baseInstance uint32)
	DrawIndexedPrimitives(t gputypes.PrimitiveTopology, indexCount uint32, f gputypes.IndexFormat,
		indexBuf *rhi.Buffer, indexOffset uint64, instanceCount uint32, baseVertex int32, baseInstance uint32)
	DrawPrimitivesIndirect(t gputypes.PrimitiveTopology, buf *rhi.Buffer, offset uint64)
	DrawIndexedPrimitivesIndirect(t gputypes.PrimitiveTopology, f gputypes.IndexFormat,
		indexBuf *rhi.Buffer, indexOffset uint64, buf *rhi.Buffer, offset uint64)
}

// ComputeCommandEncoder records dispatches.
type ComputeCommandEncoder interface {
	CommandEncoder

	SetComputePipelineState(p *rhi.Pipeline)
	SetKernel(k ComputePipelineState)
	SetBuffer(buf *rhi.Buffer, offset uint64, index uint32)
	SetBufferOffset(offset uint64, index uint32)
	SetBytes(data []byte, index uint32)
	SetTexture(v *rhi.TextureView, index uint32)
	SetSamplerState(s *rhi.Sampler, index uint32)

	DispatchThreadgroups(groups, threadsPerGroup Size)
	DispatchThreadgroupsIndirect(buf *rhi.Buffer, offset uint64, threadsPerGroup Size)
}

// BlitCommandEncoder records copies. Row and image pitches are in bytes;
// an image pitch of zero addresses a single 2D image.
type BlitCommandEncoder interface {
	CommandEncoder

	CopyBuffer(src *rhi.Buffer, srcOffset uint64, dst *rhi.Buffer, dstOffset, size uint64)
	CopyBufferToTexture(src *rhi.Buffer, srcOffset uint64, bytesPerRow, bytesPerImage uint32, size Size,
		dst *rhi.Texture, slice, level uint32, origin Origin)
	CopyTextureToBuffer(src *rhi.Texture, slice, level uint32, origin Origin, size Size,
		dst *rhi.Buffer, dstOffset uint64, bytesPerRow, bytesPerImage uint32)
	CopyTexture(src *rhi.Texture, srcSlice, srcLevel uint32, srcOrigin Origin, size Size,
		dst *rhi.Texture, dstSlice, dstLevel uint32, dstOrigin Origin)
	GenerateMipmaps(t *rhi.Texture)
}

// Origin is a texel position.
type Origin struct {
	X, Y, Z uint32
}

// Size is a texel or threadgroup extent.
type Size struct {
	Width, Height, Depth uint32
}

// LoadAction is what a render pass does with an attachment's previous
// contents.
type LoadAction uint8

const (
	LoadActionLoad LoadAction = iota
	LoadActionClear
)

func (a LoadAction) String() string {
	if a == LoadActionClear {
		return "Clear"
	}
	return "Load"
}

// StoreAction is what a render pass does with an attachment's contents
// when it ends.
type StoreAction uint8

const (
	StoreActionStore StoreAction = iota
	StoreActionMultisampleResolve
)

// ColorAttachment is one color attachment of a render pass.
type ColorAttachment struct {
	Texture    *rhi.Texture
	Level      uint32
	Slice      uint32
	Load       LoadAction
	Store      StoreAction
	ClearColor gputypes.Color

	// ResolveTexture receives the resolved samples when Store is
	// StoreActionMultisampleResolve.
	ResolveTexture *rhi.Texture
}

// DepthAttachment is the depth attachment of a render pass.
type DepthAttachment struct {
	Texture    *rhi.Texture
	Level      uint32
	Slice      uint32
	Load       LoadAction
	ClearDepth float32
}

// StencilAttachment is the stencil attachment of a render pass. It shares
// the depth texture.
type StencilAttachment struct {
	Load         LoadAction
	ClearStencil uint8
}

// RenderPassDescriptor describes a render pass to begin.
type RenderPassDescriptor struct {
	Color   []ColorAttachment
	Depth   *DepthAttachment
	Stencil *StencilAttachment
}

// NewRenderPassDescriptor returns the descriptor of a pass over fb that
// loads and stores every attachment.
func NewRenderPassDescriptor(fb *rhi.Framebuffer) *RenderPassDescriptor {
	desc := &RenderPassDescriptor{Color: make([]ColorAttachment, len(fb.ColorTargets()))}
	for i, a := range fb.ColorTargets() {
		desc.Color[i] = ColorAttachment{Texture: a.Target, Level: a.MipLevel, Slice: a.ArrayLayer}
	}
	if d := fb.DepthTarget(); d != nil {
		desc.Depth = &DepthAttachment{Texture: d.Target, Level: d.MipLevel, Slice: d.ArrayLayer}
		if d.Target.Format().HasStencil() {
			desc.Stencil = &StencilAttachment{}
		}
	}
	return desc
}
