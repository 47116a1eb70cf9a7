package vulkan

import (
	"fmt"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/format"
	"github.com/gogpu/rhi/internal/layout"
)

// CopyBuffer copies regions from src to dst. Zero-length regions are
// skipped and every run of non-empty regions between them is one native
// copy. Vertex input that follows waits for the copies.
func (cl *CommandList) CopyBuffer(src, dst *rhi.Buffer, regions ...rhi.BufferCopyCommand) error {
	if err := cl.CheckCopyBuffer(src, dst, regions); err != nil {
		return err
	}
	return cl.copyBuffer(src, dst, regions)
}

func (cl *CommandList) copyBuffer(src, dst *rhi.Buffer, regions []rhi.BufferCopyCommand) error {
	cl.track(src)
	cl.track(dst)
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}

	var run []BufferCopy
	copied := false
	flush := func() {
		if len(run) > 0 {
			cl.cb.CopyBuffer(src, dst, run)
			run = nil
			copied = true
		}
	}
	for _, r := range regions {
		if r.Length == 0 {
			flush()
			continue
		}
		run = append(run, BufferCopy{SrcOffset: r.ReadOffset, DstOffset: r.WriteOffset, Size: r.Length})
	}
	flush()

	if copied {
		cl.cb.PipelineBarrier(layout.StageTransfer, layout.StageVertexInput,
			[]MemoryBarrier{{SrcAccess: layout.AccessTransferWrite, DstAccess: layout.AccessVertexAttributeRead}}, nil)
	}
	return nil
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
		return fmt.Errorf("vulkan: update buffer: %w", rhi.CheckResult(err))
	}
	cl.cmds.Info().AddStagingBuffer(staging)
	if err := cl.dev.UpdateBuffer(staging, 0, data); err != nil {
		return fmt.Errorf("vulkan: update buffer: %w", rhi.CheckResult(err))
	}
	return cl.copyBuffer(staging, dst, []rhi.BufferCopyCommand{{WriteOffset: offset, Length: uint64(len(data))}})
}

// copyAspect is the single aspect a copy of t addresses.
func copyAspect(t *rhi.Texture) layout.Aspect {
	if t.Usage().Has(rhi.TextureUsageDepthStencil) {
		return layout.AspectDepth
	}
	return layout.AspectColor
}

// CopyTexture copies a region between textures. Device textures are
// moved to transfer layouts for the copy and back to their resting
// layouts afterwards; staging textures are addressed through their
// backing buffers.
func (cl *CommandList) CopyTexture(src, dst *rhi.Texture, r rhi.TextureCopyRegion) error {
	if err := cl.CheckCopyTexture(src, dst, r); err != nil {
		return err
	}
	cl.track(src)
	cl.track(dst)
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}
	r.Depth = max(r.Depth, 1)
	r.LayerCount = max(r.LayerCount, 1)

	switch {
	case !src.IsStaging() && !dst.IsStaging():
		cl.copyImage(src, dst, r)
	case src.IsStaging() && !dst.IsStaging():
		cl.copyStagingToImage(src, dst, r)
	case !src.IsStaging() && dst.IsStaging():
		cl.copyImageToStaging(src, dst, r)
	default:
		cl.copyStagingToStaging(src, dst, r)
	}
	return nil
}

func srcRange(r rhi.TextureCopyRegion) layout.Range {
	return layout.Range{BaseMip: r.SrcMipLevel, MipCount: 1, BaseLayer: r.SrcBaseArrayLayer, LayerCount: r.LayerCount}
}

func dstRange(r rhi.TextureCopyRegion) layout.Range {
	return layout.Range{BaseMip: r.DstMipLevel, MipCount: 1, BaseLayer: r.DstBaseArrayLayer, LayerCount: r.LayerCount}
}

func (cl *CommandList) copyImage(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	cl.transition(src, srcRange(r), layout.TransferSrc)
	cl.transition(dst, dstRange(r), layout.TransferDst)
	cl.cb.CopyImage(src, dst, []ImageCopy{{
		SrcSubresource: ImageSubresource{
			Aspect:         copyAspect(src),
			MipLevel:       r.SrcMipLevel,
			BaseArrayLayer: r.SrcBaseArrayLayer,
			LayerCount:     r.LayerCount,
		},
		SrcOffset: Offset3D{r.SrcX, r.SrcY, r.SrcZ},
		DstSubresource: ImageSubresource{
			Aspect:         copyAspect(dst),
			MipLevel:       r.DstMipLevel,
			BaseArrayLayer: r.DstBaseArrayLayer,
			LayerCount:     r.LayerCount,
		},
		DstOffset: Offset3D{r.DstX, r.DstY, r.DstZ},
		Extent:    Extent3D{r.Width, r.Height, r.Depth},
	}})
	cl.transition(src, srcRange(r), rhi.TransitionBackLayout(src.Usage()))
	cl.transition(dst, dstRange(r), rhi.TransitionBackLayout(dst.Usage()))
}

// copyStagingToImage uploads one region per layer. The buffer offset
// addresses the block holding the source origin, and the copy extent is
// clamped to the destination mip, which can be smaller than a block.
func (cl *CommandList) copyStagingToImage(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := src.Format()
	_, bh := format.BlockDimensions(f)
	mipW, mipH, _ := src.MipDimensions(r.SrcMipLevel)
	dstW, dstH, _ := dst.MipDimensions(r.DstMipLevel)

	regions := make([]BufferImageCopy, 0, r.LayerCount)
	for i := range r.LayerCount {
		sl := src.SubresourceLayout(r.SrcMipLevel, r.SrcBaseArrayLayer+i)
		regions = append(regions, BufferImageCopy{
			BufferOffset:      sl.Offset + format.BlockOffset(r.SrcX, r.SrcY, r.SrcZ, sl.RowPitch, sl.DepthPitch, f),
			BufferRowLength:   format.BufferRowLength(mipW, f),
			BufferImageHeight: max(mipH, bh),
			Subresource: ImageSubresource{
				Aspect:         copyAspect(dst),
				MipLevel:       r.DstMipLevel,
				BaseArrayLayer: r.DstBaseArrayLayer + i,
				LayerCount:     1,
			},
			ImageOffset: Offset3D{r.DstX, r.DstY, r.DstZ},
			ImageExtent: Extent3D{format.CopyExtent(r.Width, dstW), format.CopyExtent(r.Height, dstH), r.Depth},
		})
	}

	cl.transition(dst, dstRange(r), layout.TransferDst)
	cl.cb.CopyBufferToImage(src.StagingBuffer(), dst, regions)
	cl.transition(dst, dstRange(r), rhi.TransitionBackLayout(dst.Usage()))
}

// copyImageToStaging downloads one region per layer, each placed at the
// subresource layout of its destination layer.
func (cl *CommandList) copyImageToStaging(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := dst.Format()
	_, bh := format.BlockDimensions(f)
	mipW, mipH, _ := dst.MipDimensions(r.DstMipLevel)

	regions := make([]BufferImageCopy, 0, r.LayerCount)
	for i := range r.LayerCount {
		dl := dst.SubresourceLayout(r.DstMipLevel, r.DstBaseArrayLayer+i)
		regions = append(regions, BufferImageCopy{
			BufferOffset:      dl.Offset + format.BlockOffset(r.DstX, r.DstY, r.DstZ, dl.RowPitch, dl.DepthPitch, f),
			BufferRowLength:   format.BufferRowLength(mipW, f),
			BufferImageHeight: max(mipH, bh),
			Subresource: ImageSubresource{
				Aspect:         copyAspect(src),
				MipLevel:       r.SrcMipLevel,
				BaseArrayLayer: r.SrcBaseArrayLayer + i,
				LayerCount:     1,
			},
			ImageOffset: Offset3D{r.SrcX, r.SrcY, r.SrcZ},
			ImageExtent: Extent3D{r.Width, r.Height, r.Depth},
		})
	}

	cl.transition(src, srcRange(r), layout.TransferSrc)
	cl.cb.CopyImageToBuffer(src, dst.StagingBuffer(), regions)
	cl.transition(src, srcRange(r), rhi.TransitionBackLayout(src.Usage()))
}

// copyStagingToStaging copies block rows between the backing buffers.
// Array layers and depth slices are walked alike: with several layers
// each step is a layer, otherwise a depth slice.
func (cl *CommandList) copyStagingToStaging(src, dst *rhi.Texture, r rhi.TextureCopyRegion) {
	f := src.Format()
	rowSize := uint64(format.RowPitch(r.Width, f))
	numRows := format.NumRows(r.Height, f)
	steps := max(r.Depth, r.LayerCount)

	regions := make([]BufferCopy, 0, steps*numRows)
	for i := range steps {
		srcLayer, dstLayer := r.SrcBaseArrayLayer, r.DstBaseArrayLayer
		srcZ, dstZ := r.SrcZ+i, r.DstZ+i
		if r.LayerCount > 1 {
			srcLayer, dstLayer = srcLayer+i, dstLayer+i
			srcZ, dstZ = r.SrcZ, r.DstZ
		}
		sl := src.SubresourceLayout(r.SrcMipLevel, srcLayer)
		dl := dst.SubresourceLayout(r.DstMipLevel, dstLayer)
		srcBase := sl.Offset + format.BlockOffset(r.SrcX, r.SrcY, srcZ, sl.RowPitch, sl.DepthPitch, f)
		dstBase := dl.Offset + format.BlockOffset(r.DstX, r.DstY, dstZ, dl.RowPitch, dl.DepthPitch, f)
		for row := range uint64(numRows) {
			regions = append(regions, BufferCopy{
				SrcOffset: srcBase + row*uint64(sl.RowPitch),
				DstOffset: dstBase + row*uint64(dl.RowPitch),
				Size:      rowSize,
			})
		}
	}
	cl.cb.CopyBuffer(src.StagingBuffer(), dst.StagingBuffer(), regions)
}

// ResolveTexture resolves mip 0, layer 0 of a multisampled texture into
// dst.
func (cl *CommandList) ResolveTexture(src, dst *rhi.Texture) error {
	if err := cl.CheckResolve(src, dst); err != nil {
		return err
	}
	cl.track(src)
	cl.track(dst)
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}
	first := layout.Range{MipCount: 1, LayerCount: 1}
	cl.transition(src, first, layout.TransferSrc)
	cl.transition(dst, first, layout.TransferDst)
	cl.cb.ResolveImage(src, dst, ImageResolve{
		SrcSubresource: ImageSubresource{Aspect: layout.AspectColor, LayerCount: 1},
		DstSubresource: ImageSubresource{Aspect: layout.AspectColor, LayerCount: 1},
		Extent:         Extent3D{src.Width(), src.Height(), src.Depth()},
	})
	cl.transition(src, first, rhi.TransitionBackLayout(src.Usage()))
	cl.transition(dst, first, rhi.TransitionBackLayout(dst.Usage()))
	return nil
}

// GenerateMipmaps fills every mip level of t by blitting down from the
// level above it.
func (cl *CommandList) GenerateMipmaps(t *rhi.Texture) error {
	if err := cl.CheckGenerateMipmaps(t); err != nil {
		return err
	}
	cl.track(t)
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}
	if t.MipLevels() <= 1 {
		return nil
	}
	emit := cl.emit(t)
	layers := t.ActualArrayLayers()
	for level := uint32(1); level < t.MipLevels(); level++ {
		t.TransitionImageLayoutNonmatching(layout.Range{BaseMip: level - 1, MipCount: 1, LayerCount: layers}, layout.TransferSrc, emit)
		t.TransitionImageLayoutNonmatching(layout.Range{BaseMip: level, MipCount: 1, LayerCount: layers}, layout.TransferDst, emit)

		sw, sh, sd := t.MipDimensions(level - 1)
		dw, dh, dd := t.MipDimensions(level)
		cl.cb.BlitImage(t, t, []ImageBlit{{
			SrcSubresource: ImageSubresource{Aspect: layout.AspectColor, MipLevel: level - 1, LayerCount: layers},
			SrcOffsets:     [2]Offset3D{{}, {sw, sh, sd}},
			DstSubresource: ImageSubresource{Aspect: layout.AspectColor, MipLevel: level, LayerCount: layers},
			DstOffsets:     [2]Offset3D{{}, {dw, dh, dd}},
		}})
	}
	t.TransitionImageLayoutNonmatching(t.FullRange(), rhi.TransitionBackLayout(t.Usage()), emit)
	return nil
}
