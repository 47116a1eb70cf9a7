package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// TextureUsage specifies how a texture can be used.
// These flags can be combined with bitwise OR.
type TextureUsage uint8

const (
	// TextureUsageSampled allows the texture to be read through a sampler.
	TextureUsageSampled TextureUsage = 1 << iota

	// TextureUsageStorage allows read-write access from shaders.
	TextureUsageStorage

	// TextureUsageRenderTarget allows the texture to be a framebuffer color target.
	TextureUsageRenderTarget

	// TextureUsageDepthStencil allows the texture to be a framebuffer depth target.
	TextureUsageDepthStencil

	// TextureUsageCubemap marks a texture whose layers are cube faces.
	TextureUsageCubemap

	// TextureUsageStaging marks a host-visible texture backed by a buffer.
	TextureUsageStaging

	// TextureUsageGenerateMipmaps allows GenerateMipmaps on the texture.
	TextureUsageGenerateMipmaps
)

// Has reports whether all flags in f are set.
func (u TextureUsage) Has(f TextureUsage) bool { return u&f == f }

// BufferUsage specifies how a buffer can be used.
type BufferUsage uint16

const (
	// BufferUsageVertex allows binding as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << iota
	// BufferUsageIndex allows binding as an index buffer.
	BufferUsageIndex
	// BufferUsageUniform allows binding as a uniform buffer.
	BufferUsageUniform
	// BufferUsageStructuredReadOnly allows binding as a read-only storage buffer.
	BufferUsageStructuredReadOnly
	// BufferUsageStructuredReadWrite allows binding as a read-write storage buffer.
	BufferUsageStructuredReadWrite
	// BufferUsageIndirect allows use as an indirect argument buffer.
	BufferUsageIndirect
	// BufferUsageDynamic marks a buffer updated frequently from the host.
	BufferUsageDynamic
	// BufferUsageStagingRead marks a host-readable staging buffer.
	BufferUsageStagingRead
	// BufferUsageStagingWrite marks a host-writable staging buffer.
	BufferUsageStagingWrite
)

// Has reports whether all flags in f are set.
func (u BufferUsage) Has(f BufferUsage) bool { return u&f == f }

// ResourceKind is the kind of one resource layout element.
type ResourceKind uint8

const (
	// KindUniformBuffer is a uniform buffer.
	KindUniformBuffer ResourceKind = iota
	// KindStructuredBufferReadOnly is a read-only storage buffer.
	KindStructuredBufferReadOnly
	// KindStructuredBufferReadWrite is a read-write storage buffer.
	KindStructuredBufferReadWrite
	// KindTextureReadOnly is a sampled texture.
	KindTextureReadOnly
	// KindTextureReadWrite is a storage texture.
	KindTextureReadWrite
	// KindSampler is a sampler.
	KindSampler
)

// IsBuffer reports whether the kind occupies the buffer binding space.
func (k ResourceKind) IsBuffer() bool { return k <= KindStructuredBufferReadWrite }

// IsTexture reports whether the kind occupies the texture binding space.
func (k ResourceKind) IsTexture() bool {
	return k == KindTextureReadOnly || k == KindTextureReadWrite
}

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindUniformBuffer:
		return "UniformBuffer"
	case KindStructuredBufferReadOnly:
		return "StructuredBufferReadOnly"
	case KindStructuredBufferReadWrite:
		return "StructuredBufferReadWrite"
	case KindTextureReadOnly:
		return "TextureReadOnly"
	case KindTextureReadWrite:
		return "TextureReadWrite"
	case KindSampler:
		return "Sampler"
	}
	return fmt.Sprintf("ResourceKind(%d)", uint8(k))
}

// BindingModel selects how vertex buffers share the native buffer index
// space with resource-set buffers.
type BindingModel uint8

const (
	// BindingModelDefault defers to the command list configuration.
	BindingModelDefault BindingModel = iota

	// BindingModelLegacy places vertex buffers first, at their own slot;
	// resource-set buffers follow after the vertex buffer range.
	BindingModelLegacy

	// BindingModelImproved places resource-set buffers first and vertex
	// buffers after them, at nonVertexBufferCount + slot.
	BindingModelImproved
)

// String returns the model name.
func (m BindingModel) String() string {
	switch m {
	case BindingModelLegacy:
		return "Legacy"
	case BindingModelImproved:
		return "Improved"
	}
	return "Default"
}

// Resolve returns m, or fallback when m is BindingModelDefault.
func (m BindingModel) Resolve(fallback BindingModel) BindingModel {
	if m == BindingModelDefault {
		return fallback
	}
	return m
}

// Viewport is a render viewport in framebuffer pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is a scissor rectangle in framebuffer pixels.
type Rect struct {
	X, Y          uint32
	Width, Height uint32
}

// BufferCopyCommand is one region of a buffer-to-buffer copy.
type BufferCopyCommand struct {
	ReadOffset  uint64
	WriteOffset uint64
	Length      uint64
}

// Aligned reports whether every field is a multiple of four bytes, the
// granularity of the native fast copy path.
func (c BufferCopyCommand) Aligned() bool {
	return c.ReadOffset%4 == 0 && c.WriteOffset%4 == 0 && c.Length%4 == 0
}

// TextureCopyRegion describes a texture-to-texture copy.
type TextureCopyRegion struct {
	SrcX, SrcY, SrcZ  uint32
	SrcMipLevel       uint32
	SrcBaseArrayLayer uint32

	DstX, DstY, DstZ  uint32
	DstMipLevel       uint32
	DstBaseArrayLayer uint32

	Width, Height, Depth uint32
	LayerCount           uint32
}

// FillMode is the rasterizer polygon fill mode.
type FillMode uint8

const (
	// FillSolid fills polygons.
	FillSolid FillMode = iota
	// FillWireframe draws polygon edges.
	FillWireframe
)

// FixedFunctionState is the snapshot of graphics pipeline state a backend
// compares against the last applied pipeline to skip redundant native calls.
type FixedFunctionState struct {
	CullMode           gputypes.CullMode
	FrontFace          gputypes.FrontFace
	FillMode           FillMode
	BlendConstant      gputypes.Color
	DepthTestEnabled   bool
	DepthWriteEnabled  bool
	DepthClipEnabled   bool
	StencilReference   uint32
	ScissorTestEnabled bool
}

// Features describes optional device capabilities the command lists honor.
type Features struct {
	// MultipleViewports allows more than one viewport and scissor rectangle.
	MultipleViewports bool

	// ClipSpaceYInverted reports whether clip space Y points down. When false
	// the explicit-barrier backend flips viewports to keep one convention.
	ClipSpaceYInverted bool

	// DebugMarkers reports native support for debug groups and markers.
	DebugMarkers bool
}
