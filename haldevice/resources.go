package haldevice

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
)

// NewBuffer creates a device buffer. Staging usages produce host-visible
// buffers that UpdateBuffer and ReadBuffer map directly.
func (d *Device) NewBuffer(size uint64, usage rhi.BufferUsage) (*rhi.Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("haldevice: zero-sized buffer: %w", rhi.ErrInvalidDescriptor)
	}
	return d.newHALBuffer(size, usage, bufferUsage(usage), "buffer")
}

func bufferUsage(u rhi.BufferUsage) gputypes.BufferUsage {
	if u&rhi.BufferUsageStagingRead != 0 {
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	}
	if u&rhi.BufferUsageStagingWrite != 0 {
		return gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	}
	out := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if u&rhi.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&rhi.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&rhi.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&(rhi.BufferUsageStructuredReadOnly|rhi.BufferUsageStructuredReadWrite) != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&rhi.BufferUsageIndirect != 0 {
		out |= gputypes.BufferUsageIndirect
	}
	return out
}

// NewTexture creates a texture and its default view. A staging usage
// produces a buffer-backed staging texture instead.
func (d *Device) NewTexture(desc rhi.TextureDescriptor) (*rhi.Texture, error) {
	desc = desc.Normalized()
	if desc.Usage&rhi.TextureUsageStaging != 0 {
		return d.createStagingTexture(desc)
	}
	if desc.Dimension == gputypes.TextureDimensionUndefined {
		desc.Dimension = gputypes.TextureDimension2D
	}
	depth := desc.ArrayLayers
	if desc.Dimension == gputypes.TextureDimension3D {
		depth = desc.Depth
	} else if desc.Usage&rhi.TextureUsageCubemap != 0 {
		depth *= 6
	}
	ht, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         d.label("texture"),
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: depth},
		MipLevelCount: desc.MipLevels,
		SampleCount:   desc.SampleCount,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	hv, err := d.dev.CreateTextureView(ht, &hal.TextureViewDescriptor{
		Label:           d.label("texture view"),
		Format:          desc.Format,
		Dimension:       viewDimension(desc, depth),
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   desc.MipLevels,
		ArrayLayerCount: viewLayers(desc, depth),
	})
	if err != nil {
		d.dev.DestroyTexture(ht)
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewTexture(desc, ht, hv, func() {
		d.dev.DestroyTextureView(hv)
		d.dev.DestroyTexture(ht)
	}), nil
}

func textureUsage(u rhi.TextureUsage) gputypes.TextureUsage {
	out := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if u&rhi.TextureUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&rhi.TextureUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&(rhi.TextureUsageRenderTarget|rhi.TextureUsageDepthStencil|rhi.TextureUsageGenerateMipmaps) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

func viewDimension(desc rhi.TextureDescriptor, layers uint32) gputypes.TextureViewDimension {
	switch {
	case desc.Dimension == gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case desc.Dimension == gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	case desc.Usage&rhi.TextureUsageCubemap != 0 && layers > 6:
		return gputypes.TextureViewDimensionCubeArray
	case desc.Usage&rhi.TextureUsageCubemap != 0:
		return gputypes.TextureViewDimensionCube
	case layers > 1:
		return gputypes.TextureViewDimension2DArray
	}
	return gputypes.TextureViewDimension2D
}

func viewLayers(desc rhi.TextureDescriptor, depth uint32) uint32 {
	if desc.Dimension == gputypes.TextureDimension3D {
		return 1
	}
	return depth
}

// NewTextureView creates a view onto a subresource range of target. Zero
// counts extend to the end of the texture.
func (d *Device) NewTextureView(target *rhi.Texture, desc rhi.TextureViewDescriptor) (*rhi.TextureView, error) {
	if target.HAL() == nil {
		return nil, fmt.Errorf("haldevice: view of a texture with no native image: %w", rhi.ErrInvalidDescriptor)
	}
	full := rhi.TextureViewDescriptor{
		Format:     desc.Format,
		BaseMip:    desc.BaseMip,
		MipCount:   desc.MipCount,
		BaseLayer:  desc.BaseLayer,
		LayerCount: desc.LayerCount,
	}
	if full.Format == gputypes.TextureFormatUndefined {
		full.Format = target.Format()
	}
	if full.MipCount == 0 && full.BaseMip < target.MipLevels() {
		full.MipCount = target.MipLevels() - full.BaseMip
	}
	if full.LayerCount == 0 && full.BaseLayer < target.ActualArrayLayers() {
		full.LayerCount = target.ActualArrayLayers() - full.BaseLayer
	}
	dim := gputypes.TextureViewDimension2D
	switch {
	case target.Descriptor().Dimension == gputypes.TextureDimension3D:
		dim = gputypes.TextureViewDimension3D
	case full.LayerCount > 1:
		dim = gputypes.TextureViewDimension2DArray
	}
	hv, err := d.dev.CreateTextureView(target.HAL(), &hal.TextureViewDescriptor{
		Label:           d.label("texture view"),
		Format:          full.Format,
		Dimension:       dim,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    full.BaseMip,
		MipLevelCount:   full.MipCount,
		BaseArrayLayer:  full.BaseLayer,
		ArrayLayerCount: full.LayerCount,
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	v, err := rhi.NewTextureView(target, full, hv, func() { d.dev.DestroyTextureView(hv) })
	if err != nil {
		d.dev.DestroyTextureView(hv)
		return nil, err
	}
	return v, nil
}

// NewSampler creates a sampler. A nil desc selects linear filtering with
// clamped addressing.
func (d *Device) NewSampler(desc *hal.SamplerDescriptor) (*rhi.Sampler, error) {
	if desc == nil {
		desc = &hal.SamplerDescriptor{
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
			LodMaxClamp:  32,
		}
	}
	hs, err := d.dev.CreateSampler(desc)
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewSampler(hs, func() { d.dev.DestroySampler(hs) }), nil
}

// NewFramebuffer creates a framebuffer. Attachments naming a mip level or
// array layer other than the first get a single-subresource view, which
// lives until the framebuffer is disposed.
func (d *Device) NewFramebuffer(desc rhi.FramebufferDescriptor) (*rhi.Framebuffer, error) {
	var views []hal.TextureView
	destroy := func() {
		for _, v := range views {
			d.dev.DestroyTextureView(v)
		}
	}
	attach := func(a *rhi.FramebufferAttachment) error {
		if a.View != nil || a.Target == nil || a.Target.HAL() == nil {
			return nil
		}
		if a.MipLevel == 0 && a.ArrayLayer == 0 && a.Target.DefaultView() != nil {
			return nil
		}
		hv, err := d.dev.CreateTextureView(a.Target.HAL(), &hal.TextureViewDescriptor{
			Label:           d.label("attachment view"),
			Format:          a.Target.Format(),
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			BaseMipLevel:    a.MipLevel,
			MipLevelCount:   1,
			BaseArrayLayer:  a.ArrayLayer,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return rhi.CheckResult(err)
		}
		views = append(views, hv)
		a.View = hv
		return nil
	}

	out := rhi.FramebufferDescriptor{ColorTargets: append([]rhi.FramebufferAttachment(nil), desc.ColorTargets...)}
	if desc.DepthTarget != nil {
		depth := *desc.DepthTarget
		out.DepthTarget = &depth
		if err := attach(out.DepthTarget); err != nil {
			destroy()
			return nil, err
		}
	}
	for i := range out.ColorTargets {
		if err := attach(&out.ColorTargets[i]); err != nil {
			destroy()
			return nil, err
		}
	}
	var release func()
	if len(views) > 0 {
		release = destroy
	}
	fb, err := rhi.NewFramebufferWithRelease(out, release)
	if err != nil {
		destroy()
		return nil, err
	}
	return fb, nil
}

// NewResourceLayout creates a resource layout and its bind group layout.
func (d *Device) NewResourceLayout(elements []rhi.ResourceLayoutElement) (*rhi.ResourceLayout, error) {
	probe, err := rhi.NewResourceLayout(elements, nil, nil)
	if err != nil {
		return nil, err
	}
	hl, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   d.label("resource layout"),
		Entries: probe.HALEntries(),
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewResourceLayout(elements, hl, func() { d.dev.DestroyBindGroupLayout(hl) })
}

// NewResourceSet creates a resource set and its bind group.
func (d *Device) NewResourceSet(layout *rhi.ResourceLayout, resources []rhi.BindableResource) (*rhi.ResourceSet, error) {
	probe, err := rhi.NewResourceSet(layout, resources, nil, nil)
	if err != nil {
		return nil, err
	}
	entries := probe.HALEntries()
	probe.Dispose()

	hg, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   d.label("resource set"),
		Layout:  layout.HAL(),
		Entries: entries,
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	set, err := rhi.NewResourceSet(layout, resources, hg, func() { d.dev.DestroyBindGroup(hg) })
	if err != nil {
		d.dev.DestroyBindGroup(hg)
		return nil, err
	}
	return set, nil
}

func (d *Device) newPipelineLayout(layouts []*rhi.ResourceLayout) (hal.PipelineLayout, error) {
	groups := make([]hal.BindGroupLayout, 0, len(layouts))
	for i, l := range layouts {
		if l.HAL() == nil {
			return nil, fmt.Errorf("haldevice: resource layout %d has no native layout: %w", i, rhi.ErrInvalidDescriptor)
		}
		groups = append(groups, l.HAL())
	}
	pl, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.label("pipeline layout"),
		BindGroupLayouts: groups,
	})
	return pl, rhi.CheckResult(err)
}

// NewGraphicsPipeline creates a render pipeline. native carries the shader
// stages and vertex formats; its Layout is built from desc.ResourceLayouts.
func (d *Device) NewGraphicsPipeline(desc rhi.PipelineDescriptor, native hal.RenderPipelineDescriptor) (*rhi.Pipeline, error) {
	pl, err := d.newPipelineLayout(desc.ResourceLayouts)
	if err != nil {
		return nil, err
	}
	native.Layout = pl
	if native.Label == "" {
		native.Label = d.label("graphics pipeline")
	}
	if desc.VertexBufferCount == 0 {
		desc.VertexBufferCount = uint32(len(native.Vertex.Buffers))
	}
	rp, err := d.dev.CreateRenderPipeline(&native)
	if err != nil {
		d.dev.DestroyPipelineLayout(pl)
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewGraphicsPipeline(desc, rp, pl, func() {
		d.dev.DestroyRenderPipeline(rp)
		d.dev.DestroyPipelineLayout(pl)
	}), nil
}

// NewComputePipeline compiles source and creates a compute pipeline
// running entry.
func (d *Device) NewComputePipeline(desc rhi.PipelineDescriptor, source hal.ShaderSource, entry string) (*rhi.Pipeline, error) {
	mod, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.label("compute shader"),
		Source: source,
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	pl, err := d.newPipelineLayout(desc.ResourceLayouts)
	if err != nil {
		d.dev.DestroyShaderModule(mod)
		return nil, err
	}
	cp, err := d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   d.label("compute pipeline"),
		Layout:  pl,
		Compute: hal.ComputeState{Module: mod, EntryPoint: entry},
	})
	if err != nil {
		d.dev.DestroyPipelineLayout(pl)
		d.dev.DestroyShaderModule(mod)
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewComputePipeline(desc, cp, pl, func() {
		d.dev.DestroyComputePipeline(cp)
		d.dev.DestroyPipelineLayout(pl)
		d.dev.DestroyShaderModule(mod)
	}), nil
}
