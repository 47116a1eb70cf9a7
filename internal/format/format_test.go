package format

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBlockDimensions(t *testing.T) {
	tests := []struct {
		f    gputypes.TextureFormat
		w, h uint32
	}{
		{gputypes.TextureFormatRGBA8Unorm, 1, 1},
		{gputypes.TextureFormatBC1RGBAUnorm, 4, 4},
		{gputypes.TextureFormatBC7RGBAUnormSrgb, 4, 4},
		{gputypes.TextureFormatETC2RGBA8Unorm, 4, 4},
		{gputypes.TextureFormatASTC4x4Unorm, 4, 4},
		{gputypes.TextureFormatASTC5x4UnormSrgb, 5, 4},
		{gputypes.TextureFormatASTC8x6Unorm, 8, 6},
		{gputypes.TextureFormatASTC12x12UnormSrgb, 12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			w, h := BlockDimensions(tt.f)
			if w != tt.w || h != tt.h {
				t.Errorf("BlockDimensions = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestBlockSizeInBytes(t *testing.T) {
	tests := []struct {
		f    gputypes.TextureFormat
		want uint32
	}{
		{gputypes.TextureFormatBC1RGBAUnorm, 8},
		{gputypes.TextureFormatBC4RSnorm, 8},
		{gputypes.TextureFormatETC2RGB8A1UnormSrgb, 8},
		{gputypes.TextureFormatEACR11Unorm, 8},
		{gputypes.TextureFormatBC3RGBAUnorm, 16},
		{gputypes.TextureFormatEACRG11Snorm, 16},
		{gputypes.TextureFormatASTC10x10Unorm, 16},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatRGBA32Float, 16},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := BlockSizeInBytes(tt.f); got != tt.want {
				t.Errorf("BlockSizeInBytes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPixelSize(t *testing.T) {
	tests := []struct {
		f    gputypes.TextureFormat
		want uint32
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRG8Uint, 2},
		{gputypes.TextureFormatR16Float, 2},
		{gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{gputypes.TextureFormatRGB10A2Unorm, 4},
		{gputypes.TextureFormatRG32Float, 8},
		{gputypes.TextureFormatRGBA16Float, 8},
		{gputypes.TextureFormatRGBA32Uint, 16},
		{gputypes.TextureFormatDepth32Float, 4},
		{gputypes.TextureFormatDepth32FloatStencil8, 8},
		{gputypes.TextureFormatBC1RGBAUnorm, 0},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := PixelSize(tt.f); got != tt.want {
				t.Errorf("PixelSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPitches_Uncompressed(t *testing.T) {
	f := gputypes.TextureFormatRGBA8Unorm
	if got := RowPitch(13, f); got != 52 {
		t.Errorf("RowPitch = %d, want 52", got)
	}
	if got := NumRows(7, f); got != 7 {
		t.Errorf("NumRows = %d, want 7", got)
	}
	if got := DepthPitch(52, 7, f); got != 364 {
		t.Errorf("DepthPitch = %d, want 364", got)
	}
	if got := RegionSize(13, 7, 2, f); got != 728 {
		t.Errorf("RegionSize = %d, want 728", got)
	}
}

func TestPitches_CompressedRoundsUpToBlocks(t *testing.T) {
	f := gputypes.TextureFormatBC1RGBAUnorm

	tests := []struct {
		name         string
		width, height uint32
		rowPitch     uint32
		rows         uint32
	}{
		{"exact blocks", 16, 8, 32, 2},
		{"partial block", 5, 5, 16, 2},
		{"smaller than a block", 2, 1, 8, 1},
		{"zero extent", 0, 0, 8, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RowPitch(tt.width, f); got != tt.rowPitch {
				t.Errorf("RowPitch(%d) = %d, want %d", tt.width, got, tt.rowPitch)
			}
			if got := NumRows(tt.height, f); got != tt.rows {
				t.Errorf("NumRows(%d) = %d, want %d", tt.height, got, tt.rows)
			}
		})
	}
}

func TestRegionSize_ASTC(t *testing.T) {
	// 10x10 texels of ASTC 8x6: 2 blocks wide, 2 block rows, 16 bytes each.
	if got := RegionSize(10, 10, 1, gputypes.TextureFormatASTC8x6Unorm); got != 64 {
		t.Errorf("RegionSize = %d, want 64", got)
	}
}

func TestMipDimension(t *testing.T) {
	tests := []struct {
		base, level, want uint32
	}{
		{256, 0, 256},
		{256, 3, 32},
		{5, 1, 2},
		{5, 3, 1},
		{1, 4, 1},
	}
	for _, tt := range tests {
		if got := MipDimension(tt.base, tt.level); got != tt.want {
			t.Errorf("MipDimension(%d, %d) = %d, want %d", tt.base, tt.level, got, tt.want)
		}
	}
}

func TestBlockOffset(t *testing.T) {
	f := gputypes.TextureFormatBC3RGBAUnorm
	rowPitch := RowPitch(64, f) // 16 blocks * 16 bytes
	depthPitch := DepthPitch(rowPitch, 64, f)

	// (8, 12, 1): block column 2, block row 3, slice 1.
	want := uint64(depthPitch) + 3*uint64(rowPitch) + 2*16
	if got := BlockOffset(8, 12, 1, rowPitch, depthPitch, f); got != want {
		t.Errorf("BlockOffset = %d, want %d", got, want)
	}

	// Texels inside a block share the block offset.
	if a, b := BlockOffset(4, 4, 0, rowPitch, depthPitch, f), BlockOffset(7, 7, 0, rowPitch, depthPitch, f); a != b {
		t.Errorf("offsets within one block differ: %d vs %d", a, b)
	}
}

func TestCopyExtentAndRowLength(t *testing.T) {
	if got := CopyExtent(4, 2); got != 2 {
		t.Errorf("CopyExtent(4, 2) = %d, want 2", got)
	}
	if got := CopyExtent(3, 16); got != 3 {
		t.Errorf("CopyExtent(3, 16) = %d, want 3", got)
	}
	f := gputypes.TextureFormatBC1RGBAUnorm
	if got := BufferRowLength(2, f); got != 4 {
		t.Errorf("BufferRowLength(2) = %d, want 4", got)
	}
	if got := BufferRowLength(32, f); got != 32 {
		t.Errorf("BufferRowLength(32) = %d, want 32", got)
	}
	if got := BufferRowLength(3, gputypes.TextureFormatRGBA8Unorm); got != 3 {
		t.Errorf("BufferRowLength(3, rgba8) = %d, want 3", got)
	}
}

func TestIsCompressed(t *testing.T) {
	if IsCompressed(gputypes.TextureFormatDepth32FloatStencil8) {
		t.Error("depth format reported compressed")
	}
	if !IsCompressed(gputypes.TextureFormatBC1RGBAUnorm) || !IsCompressed(gputypes.TextureFormatASTC12x12UnormSrgb) {
		t.Error("compressed range bounds not recognised")
	}
}
