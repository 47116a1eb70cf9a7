package metal

import (
	"fmt"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/format"
	"github.com/gogpu/rhi/internal/shader"
)

// CopyBuffer copies regions from src to dst with the blit encoder. When
// any region is not 4-byte aligned every region goes through the compute
// copy kernel instead. Zero-length regions are skipped.
func (cl *CommandList) CopyBuffer(src, dst *rhi.Buffer, regions ...rhi.BufferCopyCommand) error {
	if err := cl.CheckCopyBuffer(src, dst, regions); err != nil {
		return err
	}
	cl.track(src)
	cl.track(dst)
	for _, r := range regions {
		if !r.Aligned() {
			return cl.copyUnaligned(src, dst, regions)
		}
	}
	if err := cl.enc.EnsureCopyEncoder(); err != nil {
		return err
	}
	for _, r := range regions {
		if r.Length > 0 {
			cl.blit.CopyBuffer(src, r.ReadOffset, dst, r.WriteOffset, r.Length)
		}
	}
	return nil
}

// copyUnaligned dispatches the copy kernel once per non-empty region. The
// kernel replaces the compute pipeline and buffer bindings, so the next
// dispatch applies its own again.
func (cl *CommandList) copyUnaligned(src, dst *rhi.Buffer, regions []rhi.BufferCopyCommand) error {
	k, err := cl.loadCopyKernel()
	if err != nil {
		return err
	}
	if err := cl.enc.EnsureComputeEncoder(); err != nil {
		return err
	}
	cl.compute.SetKernel(k)
	cl.compute.SetBuffer(src, 0, shader.CopyBindingSrc)
	cl.compute.SetBuffer(dst, 0, shader.CopyBindingDst)
	one := Size{1, 1, 1}
	for _, r := range regions {
		if r.Length == 0 {
			continue
		}
		params := shader.CopyParams{
			SrcOffset: uint32(r.ReadOffset),
			DstOffset: uint32(r.WriteOffset),
			Size:      uint32(r.Length),
		}
		cl.compute.SetBytes(params.Bytes(), shader.CopyBindingParams)
		cl.compute.DispatchThreadgroups(one, one)
	}
	cl.computeEnded()
	rhi.Logger().Debug("metal: unaligned buffer copy", "regions", len(regions))
	return nil
}

// loadCopyKernel returns the copy kernel, compiling it on first use.
func (cl *CommandList) loadCopyKernel() (ComputePipelineState, error) {
	if cl.copyKernel != nil {
		return cl.copyKernel, nil
	}
	src, err := shader.CopyBufferMSL()
	if err != nil {
		return nil, fmt.Errorf("metal: copy kernel: %w", err)
	}
	k, err := cl.dev.NewComputePipelineState(src.Source, src.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("metal: copy kernel: %w", rhi.CheckResult(err))
	}
	cl.copyKernel, cl.ownCopyKernel = k, true
	return k, nil
}

// UpdateBuffer stages data in a pooled staging buffer and copies it into
// dst when the recording executes. The staging buffer returns to the pool
// when the submission completes.
func (cl *CommandList) UpdateBuffer(dst *rhi.Buffer, offset uint64, data []byte) error {
	if err := cl.CheckUpdateBuffer(dst, offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	staging, err := cl.dev.GetPooledStagingBuffer(uint64(len(data)))
	if err != nil {
		return fmt.Errorf("metal: update buffer: %w", rhi.CheckResult(err))
	}
	cl.cmds.Info().AddStagingBuffer(staging)
	if err := cl.dev.UpdateBuffer(staging, 0, data); err != nil {
		return fmt.Errorf("metal: update buffer: %w", rhi.CheckResult(err))
	}
	return cl.CopyBuffer(staging, dst, rhi.BufferCopyCommand{WriteOffset: offset, Length: uint64(len(data))})
}

// CopyTexture copies a region between textures one array layer at a time.
// Staging textures are addressed through their backing buffers.
func (cl *CommandList) CopyTexture(src, dst *rhi.Texture, r rhi.TextureCopyRegion) error {
	if err := cl.CheckCopyTexture(src, dst, r); err != nil {
		return err
	}
	cl.track(src)
	cl.track(dst)
	if err := cl.enc.EnsureCopyEncoder(); err != nil {
		return err
	}
	r.Depth = max(r.Depth, 1)
	r.LayerCount = max(r.LayerCount, 1)

	switch {
	case !src.IsStaging() && !dst.IsStaging():
		for i := range r.LayerCount {
			cl.blit.CopyTexture(src, r.SrcBaseArrayLayer+i, r.SrcMipLevel, Origin{r.SrcX, r.SrcY, r.SrcZ},
				Size{r.Width, r.Height, r.Depth},
				dst, r.DstBaseArrayLayer+i, r.DstMipLevel, Origin{r.DstX, r.DstY, r.DstZ})
		}
	case src.IsStaging() && !dst.IsStaging():
		cl.copyStagingToTexture(src, dst, r)
	case !src.IsStaging() && dst.IsStaging():
		cl.copyTextureToStaging(src, dst, r)
	default:
		cl.copyStagingToStaging(src, dst, r)
	}
	return nil
}

// copyStagingToTexture uploads each layer from the block holding the
// source origin. The extent is clamped to the destination mip, which can
// be smaller than one compressed block. Only 3D destinations take an image
// pitch.
func (cl *CommandList) copyStagingToTexture(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := src.Format()
	dstW, dstH, _ := dst.MipDimensions(r.DstMipLevel)
	size := Size{format.CopyExtent(r.Width, dstW), format.CopyExtent(r.Height, dstH), r.Depth}
	for i := range r.LayerCount {
		sl := src.SubresourceLayout(r.SrcMipLevel, r.SrcBaseArrayLayer+i)
		off := sl.Offset + format.BlockOffset(r.SrcX, r.SrcY, r.SrcZ, sl.RowPitch, sl.DepthPitch, f)
		imagePitch := sl.DepthPitch
		if dst.Depth() <= 1 {
			imagePitch = 0
		}
		cl.blit.CopyBufferToTexture(src.StagingBuffer(), off, sl.RowPitch, imagePitch, size,
			dst, r.DstBaseArrayLayer+i, r.DstMipLevel, Origin{r.DstX, r.DstY, r.DstZ})
	}
}

// copyTextureToStaging downloads each layer into the subresource layout
// of its destination layer.
func (cl *CommandList) copyTextureToStaging(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := dst.Format()
	for i := range r.LayerCount {
		dl := dst.SubresourceLayout(r.DstMipLevel, r.DstBaseArrayLayer+i)
		off := dl.Offset + format.BlockOffset(r.DstX, r.DstY, r.DstZ, dl.RowPitch, dl.DepthPitch, f)
		cl.blit.CopyTextureToBuffer(src, r.SrcBaseArrayLayer+i, r.SrcMipLevel, Origin{r.SrcX, r.SrcY, r.SrcZ},
			Size{r.Width, r.Height, r.Depth},
			dst.StagingBuffer(), off, dl.RowPitch, dl.DepthPitch)
	}
}

// copyStagingToStaging copies block rows between the backing buffers, one
// blit per row of every depth slice of every layer.
func (cl *CommandList) copyStagingToStaging(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := src.Format()
	_, bh := format.BlockDimensions(f)
	rowSize := uint64(format.RowPitch(r.Width, f))
	numRows := format.NumRows(r.Height, f)
	for i := range r.LayerCount {
		sl := src.SubresourceLayout(r.SrcMipLevel, r.SrcBaseArrayLayer+i)
		dl := dst.SubresourceLayout(r.DstMipLevel, r.DstBaseArrayLayer+i)
		for z := range r.Depth {
			for row := range numRows {
				y := row * bh
				srcOff := sl.Offset + format.BlockOffset(r.SrcX, r.SrcY+y, r.SrcZ+z, sl.RowPitch, sl.DepthPitch, f)
				dstOff := dl.Offset + format.BlockOffset(r.DstX, r.DstY+y, r.DstZ+z, dl.RowPitch, dl.DepthPitch, f)
				cl.blit.CopyBuffer(src.StagingBuffer(), srcOff, dst.StagingBuffer(), dstOff, rowSize)
			}
		}
	}
}

// ResolveTexture resolves a multisampled texture into dst through an
// empty render pass whose store action resolves.
func (cl *CommandList) ResolveTexture(src, dst *rhi.Texture) error {
	if err := cl.CheckResolve(src, dst); err != nil {
		return err
	}
	cl.track(src)
	cl.track(dst)
	if err := cl.enc.EnsureNone(); err != nil {
		return err
	}
	enc := cl.sub.cb.RenderCommandEncoder(&RenderPassDescriptor{Color: []ColorAttachment{{
		Texture:        src,
		Load:           LoadActionLoad,
		Store:          StoreActionMultisampleResolve,
		ResolveTexture: dst,
	}}})
	enc.EndEncoding()
	return nil
}

// GenerateMipmaps fills every mip level of t from the level above it.
func (cl *CommandList) GenerateMipmaps(t *rhi.Texture) error {
	if err := cl.CheckGenerateMipmaps(t); err != nil {
		return err
	}
	cl.track(t)
	if t.MipLevels() <= 1 {
		return nil
	}
	if err := cl.enc.EnsureCopyEncoder(); err != nil {
		return err
	}
	cl.blit.GenerateMipmaps(t)
	return nil
}
