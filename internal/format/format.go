// Package format computes the memory footprint of texture regions: pixel
// and block sizes, row and depth pitches, and block-aligned copy extents.
//
// Block-compressed formats store texels in fixed-size blocks. Every row of
// blocks covers BlockHeight texel rows, and a region whose extent is not a
// multiple of the block dimensions still occupies whole blocks.
package format

import "github.com/gogpu/gputypes"

// astcBlocks lists ASTC block dimensions in gputypes declaration order.
// Each entry covers the Unorm and UnormSrgb variants.
var astcBlocks = [...][2]uint32{
	{4, 4}, {5, 4}, {5, 5}, {6, 5}, {6, 6}, {8, 5}, {8, 6},
	{8, 8}, {10, 5}, {10, 6}, {10, 8}, {10, 10}, {12, 10}, {12, 12},
}

// IsCompressed reports whether f is a block-compressed format.
func IsCompressed(f gputypes.TextureFormat) bool {
	return f >= gputypes.TextureFormatBC1RGBAUnorm && f <= gputypes.TextureFormatASTC12x12UnormSrgb
}

// IsASTC reports whether f is an ASTC format.
func IsASTC(f gputypes.TextureFormat) bool {
	return f >= gputypes.TextureFormatASTC4x4Unorm && f <= gputypes.TextureFormatASTC12x12UnormSrgb
}

// BlockDimensions returns the width and height in texels of one block.
// Uncompressed formats have 1x1 blocks.
func BlockDimensions(f gputypes.TextureFormat) (width, height uint32) {
	switch {
	case IsASTC(f):
		d := astcBlocks[(f-gputypes.TextureFormatASTC4x4Unorm)/2]
		return d[0], d[1]
	case IsCompressed(f):
		return 4, 4
	default:
		return 1, 1
	}
}

// BlockSizeInBytes returns the size of one compressed block, or the pixel
// size for uncompressed formats.
func BlockSizeInBytes(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatBC1RGBAUnorm, gputypes.TextureFormatBC1RGBAUnormSrgb,
		gputypes.TextureFormatBC4RUnorm, gputypes.TextureFormatBC4RSnorm,
		gputypes.TextureFormatETC2RGB8Unorm, gputypes.TextureFormatETC2RGB8UnormSrgb,
		gputypes.TextureFormatETC2RGB8A1Unorm, gputypes.TextureFormatETC2RGB8A1UnormSrgb,
		gputypes.TextureFormatEACR11Unorm, gputypes.TextureFormatEACR11Snorm:
		return 8
	}
	if IsCompressed(f) {
		return 16
	}
	return PixelSize(f)
}

// PixelSize returns the size in bytes of one texel of an uncompressed format.
// It returns 0 for compressed and undefined formats.
func PixelSize(f gputypes.TextureFormat) uint32 {
	switch {
	case f >= gputypes.TextureFormatR8Unorm && f <= gputypes.TextureFormatR8Sint:
		return 1
	case f >= gputypes.TextureFormatR16Unorm && f <= gputypes.TextureFormatRG8Sint:
		return 2
	case f >= gputypes.TextureFormatR32Float && f <= gputypes.TextureFormatRGB9E5Ufloat:
		return 4
	case f >= gputypes.TextureFormatRG32Float && f <= gputypes.TextureFormatRGBA16Float:
		return 8
	case f >= gputypes.TextureFormatRGBA32Float && f <= gputypes.TextureFormatRGBA32Sint:
		return 16
	}
	switch f {
	case gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatDepth32FloatStencil8:
		return 8
	}
	return 0
}

// blocks returns the number of whole blocks covering n texels, never less
// than one.
func blocks(n, block uint32) uint32 {
	b := (n + block - 1) / block
	if b == 0 {
		return 1
	}
	return b
}

// RowPitch returns the byte size of one row of blocks covering width texels.
func RowPitch(width uint32, f gputypes.TextureFormat) uint32 {
	if IsCompressed(f) {
		bw, _ := BlockDimensions(f)
		return blocks(width, bw) * BlockSizeInBytes(f)
	}
	return width * PixelSize(f)
}

// NumRows returns the number of block rows covering height texels.
func NumRows(height uint32, f gputypes.TextureFormat) uint32 {
	if IsCompressed(f) {
		_, bh := BlockDimensions(f)
		return blocks(height, bh)
	}
	return height
}

// DepthPitch returns the byte size of one depth slice.
func DepthPitch(rowPitch, height uint32, f gputypes.TextureFormat) uint32 {
	return rowPitch * NumRows(height, f)
}

// RegionSize returns the byte size of a width x height x depth region.
func RegionSize(width, height, depth uint32, f gputypes.TextureFormat) uint32 {
	return DepthPitch(RowPitch(width, f), height, f) * depth
}

// MipDimension returns a base dimension reduced to mip level, at least 1.
func MipDimension(base, level uint32) uint32 {
	d := base >> level
	if d == 0 {
		return 1
	}
	return d
}

// BlockOffset returns the byte offset of texel (x, y, z) inside a region
// with the given pitches. x and y are rounded down to their block.
func BlockOffset(x, y, z, rowPitch, depthPitch uint32, f gputypes.TextureFormat) uint64 {
	bw, bh := BlockDimensions(f)
	return uint64(z)*uint64(depthPitch) +
		uint64(y/bh)*uint64(rowPitch) +
		uint64(x/bw)*uint64(BlockSizeInBytes(f))
}

// CopyExtent clamps a copy extent to the mip extent it targets. A
// compressed copy names whole blocks, so a 4x4 block copied into a 2x2 mip
// clamps to 2x2.
func CopyExtent(extent, mipExtent uint32) uint32 {
	return min(extent, mipExtent)
}

// BufferRowLength returns the row length in texels of a staging buffer
// region for a copy into a mip of width mipWidth. It is at least one block
// wide.
func BufferRowLength(mipWidth uint32, f gputypes.TextureFormat) uint32 {
	bw, _ := BlockDimensions(f)
	return max(mipWidth, bw)
}
