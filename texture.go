// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/internal/format"
	"github.com/gogpu/rhi/internal/layout"
)

// TextureDescriptor describes the shape of a texture.
type TextureDescriptor struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	ArrayLayers          uint32
	SampleCount          uint32
	Format               gputypes.TextureFormat
	Usage                TextureUsage
	Dimension            gputypes.TextureDimension
}

// Normalized returns d with zero extents, counts and sample count raised
// to one.
func (d TextureDescriptor) Normalized() TextureDescriptor {
	d.normalize()
	return d
}

func (d *TextureDescriptor) normalize() {
	d.Width = max(d.Width, 1)
	d.Height = max(d.Height, 1)
	d.Depth = max(d.Depth, 1)
	d.MipLevels = max(d.MipLevels, 1)
	d.ArrayLayers = max(d.ArrayLayers, 1)
	d.SampleCount = max(d.SampleCount, 1)
}

// SubresourceLayout locates one (mip, layer) slice inside the buffer that
// backs a staging texture.
type SubresourceLayout struct {
	Offset     uint64
	Size       uint64
	RowPitch   uint32
	DepthPitch uint32
}

// Texture is an image resource. Device textures track the layout of every
// subresource; staging textures are backed by a host-visible buffer and
// have no layout.
type Texture struct {
	resource
	desc    TextureDescriptor
	native  hal.Texture
	view    hal.TextureView
	staging *Buffer
	layouts *layout.Subresources
	full    *TextureView
}

// NewTexture wraps a native device texture. view is the default view over
// the whole texture and may be nil. Every subresource starts Preinitialized.
func NewTexture(desc TextureDescriptor, native hal.Texture, view hal.TextureView, release func()) *Texture {
	return newTexture(desc, native, view, layout.Preinitialized, release)
}

// NewSwapchainTexture wraps a presentable image. Its previous contents are
// undefined, so every subresource starts Undefined.
func NewSwapchainTexture(desc TextureDescriptor, native hal.Texture, view hal.TextureView, release func()) *Texture {
	return newTexture(desc, native, view, layout.Undefined, release)
}

func newTexture(desc TextureDescriptor, native hal.Texture, view hal.TextureView, initial layout.Layout, release func()) *Texture {
	desc.normalize()
	t := &Texture{
		resource: newResource(release),
		desc:     desc,
		native:   native,
		view:     view,
	}
	t.layouts = layout.NewSubresources(desc.MipLevels, t.ActualArrayLayers(), initial, aspectOf(desc.Format))
	return t
}

// NewStagingTexture wraps a staging texture backed by buf. buf must be at
// least StagingSize(desc) bytes; the texture holds a reference to it.
func NewStagingTexture(desc TextureDescriptor, buf *Buffer, release func()) (*Texture, error) {
	desc.normalize()
	desc.Usage |= TextureUsageStaging
	if need := StagingSize(desc); buf.Size() < need {
		return nil, fmt.Errorf("%w: staging buffer holds %d bytes, texture needs %d", ErrInvalidDescriptor, buf.Size(), need)
	}
	buf.RefCount().Increment()
	t := &Texture{
		desc:    desc,
		staging: buf,
	}
	t.resource = newResource(func() {
		buf.RefCount().Decrement()
		if release != nil {
			release()
		}
	})
	return t, nil
}

func aspectOf(f gputypes.TextureFormat) layout.Aspect {
	if !f.IsDepthStencil() {
		return layout.AspectColor
	}
	var a layout.Aspect
	if f.HasDepth() {
		a |= layout.AspectDepth
	}
	if f.HasStencil() {
		a |= layout.AspectStencil
	}
	return a
}

// Descriptor returns the texture shape.
func (t *Texture) Descriptor() TextureDescriptor { return t.desc }

// Width returns the width of mip level 0.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height returns the height of mip level 0.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Depth returns the depth of mip level 0.
func (t *Texture) Depth() uint32 { return t.desc.Depth }

// MipLevels returns the number of mip levels.
func (t *Texture) MipLevels() uint32 { return t.desc.MipLevels }

// ArrayLayers returns the declared number of array layers.
func (t *Texture) ArrayLayers() uint32 { return t.desc.ArrayLayers }

// SampleCount returns the number of samples per texel.
func (t *Texture) SampleCount() uint32 { return t.desc.SampleCount }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Usage returns the declared usage flags.
func (t *Texture) Usage() TextureUsage { return t.desc.Usage }

// ActualArrayLayers returns the number of native layers: six per declared
// layer for cube maps.
func (t *Texture) ActualArrayLayers() uint32 {
	if t.desc.Usage.Has(TextureUsageCubemap) {
		return t.desc.ArrayLayers * 6
	}
	return t.desc.ArrayLayers
}

// MipDimensions returns the extent of one mip level.
func (t *Texture) MipDimensions(level uint32) (width, height, depth uint32) {
	return format.MipDimension(t.desc.Width, level),
		format.MipDimension(t.desc.Height, level),
		format.MipDimension(t.desc.Depth, level)
}

// IsStaging reports whether the texture lives in a staging buffer.
func (t *Texture) IsStaging() bool { return t.staging != nil }

// StagingBuffer returns the buffer backing a staging texture, or nil.
func (t *Texture) StagingBuffer() *Buffer { return t.staging }

// HAL returns the native texture, or nil for staging textures.
func (t *Texture) HAL() hal.Texture { return t.native }

// DefaultView returns the native view over the whole texture.
func (t *Texture) DefaultView() hal.TextureView { return t.view }

// FullView returns a view covering every subresource of t. The view shares
// the texture's ownership token; disposing it has no effect.
func (t *Texture) FullView() *TextureView {
	if t.full == nil {
		t.full = &TextureView{
			resource:   resource{refs: t.refs},
			target:     t,
			format:     t.desc.Format,
			mipCount:   t.desc.MipLevels,
			layerCount: t.ActualArrayLayers(),
			native:     t.view,
		}
	}
	return t.full
}

// Layouts returns the subresource layout grid, or nil for staging textures.
func (t *Texture) Layouts() *layout.Subresources {
	if t.staging != nil {
		return nil
	}
	return t.layouts
}

// FullRange returns the range covering every subresource.
func (t *Texture) FullRange() layout.Range {
	return layout.Range{MipCount: t.desc.MipLevels, LayerCount: t.ActualArrayLayers()}
}

// TransitionImageLayout moves r to newLayout, emitting at most one barrier.
// It is a no-op for staging textures and for ranges already in newLayout.
func (t *Texture) TransitionImageLayout(r layout.Range, newLayout layout.Layout, emit layout.Emitter) bool {
	if t.staging != nil {
		return false
	}
	return t.layouts.Transition(r, newLayout, emit)
}

// TransitionImageLayoutNonmatching moves every subresource in r to
// newLayout individually. It is a no-op for staging textures.
func (t *Texture) TransitionImageLayoutNonmatching(r layout.Range, newLayout layout.Layout, emit layout.Emitter) int {
	if t.staging != nil {
		return 0
	}
	return t.layouts.TransitionNonmatching(r, newLayout, emit)
}

// ImageLayout returns the current layout of one subresource. Staging
// textures report Preinitialized.
func (t *Texture) ImageLayout(mip, layer uint32) layout.Layout {
	if t.staging != nil {
		return layout.Preinitialized
	}
	return t.layouts.Get(mip, layer)
}

// TransitionBackLayout returns the layout a texture rests in after a
// transient use: ShaderReadOnly for sampled textures, the attachment
// layout for render targets and General otherwise.
func TransitionBackLayout(usage TextureUsage) layout.Layout {
	return layout.BackLayout(
		usage.Has(TextureUsageSampled),
		usage.Has(TextureUsageRenderTarget) || usage.Has(TextureUsageDepthStencil),
		usage.Has(TextureUsageDepthStencil),
	)
}

// SubresourceLayout returns where one subresource of a staging texture
// lives in its backing buffer. Layers are laid out one after another, each
// holding every mip level in order.
func (t *Texture) SubresourceLayout(mip, layer uint32) SubresourceLayout {
	w, h, d := t.MipDimensions(mip)
	rowPitch := format.RowPitch(w, t.desc.Format)
	depthPitch := format.DepthPitch(rowPitch, h, t.desc.Format)
	return SubresourceLayout{
		Offset:     uint64(layer)*layerSize(t.desc) + mipOffset(t.desc, mip),
		Size:       uint64(depthPitch) * uint64(d),
		RowPitch:   rowPitch,
		DepthPitch: depthPitch,
	}
}

func mipSize(desc TextureDescriptor, level uint32) uint64 {
	w := format.MipDimension(desc.Width, level)
	h := format.MipDimension(desc.Height, level)
	d := format.MipDimension(desc.Depth, level)
	return uint64(format.RegionSize(w, h, d, desc.Format))
}

func mipOffset(desc TextureDescriptor, level uint32) uint64 {
	var off uint64
	for l := range level {
		off += mipSize(desc, l)
	}
	return off
}

func layerSize(desc TextureDescriptor) uint64 {
	return mipOffset(desc, desc.MipLevels)
}

// StagingSize returns the number of bytes a staging texture of this shape
// occupies.
func StagingSize(desc TextureDescriptor) uint64 {
	desc.normalize()
	layers := desc.ArrayLayers
	if desc.Usage.Has(TextureUsageCubemap) {
		layers *= 6
	}
	return uint64(layers) * layerSize(desc)
}

// TextureView is a typed window onto a subresource range of a texture.
type TextureView struct {
	resource
	target     *Texture
	format     gputypes.TextureFormat
	baseMip    uint32
	mipCount   uint32
	baseLayer  uint32
	layerCount uint32
	native     hal.TextureView
}

// TextureViewDescriptor selects the subresources a view covers. Zero
// counts extend to the end of the texture; an undefined format inherits
// the texture format.
type TextureViewDescriptor struct {
	Format     gputypes.TextureFormat
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// NewTextureView wraps a native view onto target. The view holds a
// reference to its texture.
func NewTextureView(target *Texture, desc TextureViewDescriptor, native hal.TextureView, release func()) (*TextureView, error) {
	if desc.BaseMip >= target.MipLevels() || desc.BaseLayer >= target.ActualArrayLayers() {
		return nil, fmt.Errorf("%w: view starts at mip %d layer %d outside texture", ErrInvalidDescriptor, desc.BaseMip, desc.BaseLayer)
	}
	if desc.MipCount == 0 {
		desc.MipCount = target.MipLevels() - desc.BaseMip
	}
	if desc.LayerCount == 0 {
		desc.LayerCount = target.ActualArrayLayers() - desc.BaseLayer
	}
	if desc.Format == gputypes.TextureFormatUndefined {
		desc.Format = target.Format()
	}
	target.RefCount().Increment()
	v := &TextureView{
		target:     target,
		format:     desc.Format,
		baseMip:    desc.BaseMip,
		mipCount:   desc.MipCount,
		baseLayer:  desc.BaseLayer,
		layerCount: desc.LayerCount,
		native:     native,
	}
	v.resource = newResource(func() {
		if release != nil {
			release()
		}
		target.RefCount().Decrement()
	})
	return v, nil
}

// Target returns the viewed texture.
func (v *TextureView) Target() *Texture { return v.target }

// Format returns the view format.
func (v *TextureView) Format() gputypes.TextureFormat { return v.format }

// Range returns the covered subresources.
func (v *TextureView) Range() layout.Range {
	return layout.Range{BaseMip: v.baseMip, MipCount: v.mipCount, BaseLayer: v.baseLayer, LayerCount: v.layerCount}
}

// HAL returns the native view.
func (v *TextureView) HAL() hal.TextureView { return v.native }

// Dispose releases the owner's reference. It has no effect on the view
// returned by Texture.FullView.
func (v *TextureView) Dispose() {
	if v.target != nil && v == v.target.full {
		return
	}
	v.resource.Dispose()
}

// Sampler describes how shaders filter and address textures.
type Sampler struct {
	resource
	native hal.Sampler
}

// NewSampler wraps a native sampler.
func NewSampler(native hal.Sampler, release func()) *Sampler {
	return &Sampler{resource: newResource(release), native: native}
}

// HAL returns the native sampler.
func (s *Sampler) HAL() hal.Sampler { return s.native }
