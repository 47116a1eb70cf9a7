package metal

import (
	"bytes"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/shader"
)

func TestCopyBufferPath(t *testing.T) {
	tests := []struct {
		name       string
		regions    []rhi.BufferCopyCommand
		wantBlits  int
		wantGroups int
	}{
		{
			name:      "aligned",
			regions:   []rhi.BufferCopyCommand{{Length: 16}, {ReadOffset: 16, WriteOffset: 32, Length: 8}},
			wantBlits: 2,
		},
		{
			name:      "aligned with empty region",
			regions:   []rhi.BufferCopyCommand{{Length: 16}, {ReadOffset: 8}},
			wantBlits: 1,
		},
		{
			name:       "unaligned offset",
			regions:    []rhi.BufferCopyCommand{{ReadOffset: 2, Length: 16}},
			wantGroups: 1,
		},
		{
			name:       "one unaligned region moves all",
			regions:    []rhi.BufferCopyCommand{{Length: 16}, {}, {ReadOffset: 16, WriteOffset: 16, Length: 3}},
			wantGroups: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			src := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)
			dst := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)
			mustOK(t, h.cl.Begin())
			mustOK(t, h.cl.CopyBuffer(src, dst, tt.regions...))

			if n := h.rec.Count("CopyBuffer"); n != tt.wantBlits {
				t.Errorf("CopyBuffer = %d, want %d", n, tt.wantBlits)
			}
			if n := h.rec.Count("DispatchThreadgroups"); n != tt.wantGroups {
				t.Errorf("DispatchThreadgroups = %d, want %d", n, tt.wantGroups)
			}
			if n := h.rec.Count("SetBytes"); n != tt.wantGroups {
				t.Errorf("SetBytes = %d, want %d", n, tt.wantGroups)
			}
		})
	}
}

func TestUnalignedCopyParams(t *testing.T) {
	h := newHarness(t)
	src := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)
	dst := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.CopyBuffer(src, dst, rhi.BufferCopyCommand{ReadOffset: 2, WriteOffset: 5, Length: 7}))

	computes := h.cb().computes
	if len(computes) != 1 || len(computes[0].bytes) != 1 {
		t.Fatalf("compute encoders = %d, want one with one parameter block", len(computes))
	}
	want := shader.CopyParams{SrcOffset: 2, DstOffset: 5, Size: 7}.Bytes()
	if got := computes[0].bytes[0]; !bytes.Equal(got, want) {
		t.Errorf("params = %x, want %x", got, want)
	}
	binds := h.rec.Find("SetBuffer")
	if len(binds) != 2 || binds[0].Arg(0) != uint32(shader.CopyBindingSrc) || binds[1].Arg(0) != uint32(shader.CopyBindingDst) {
		t.Errorf("SetBuffer = %v, want src and dst at the kernel bindings", binds)
	}
}

func TestDispatchAfterUnalignedCopyRebinds(t *testing.T) {
	h := newHarness(t)
	l := newLayout(t, gputypes.ShaderStageCompute, rhi.KindStructuredBufferReadWrite)
	buf := rhi.NewBuffer(256, rhi.BufferUsageStructuredReadWrite, nil, nil)
	set := newSet(t, l, rhi.BufferRange{Buffer: buf})
	p := rhi.NewComputePipeline(rhi.PipelineDescriptor{ResourceLayouts: []*rhi.ResourceLayout{l}}, nil, nil, nil)
	src := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)
	dst := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetPipeline(p))
	mustOK(t, h.cl.SetComputeResourceSet(0, set, nil))
	mustOK(t, h.cl.Dispatch(1, 1, 1))
	mustOK(t, h.cl.CopyBuffer(src, dst, rhi.BufferCopyCommand{ReadOffset: 1, Length: 3}))
	mustOK(t, h.cl.Dispatch(1, 1, 1))

	if n := h.rec.Count("ComputeCommandEncoder"); n != 1 {
		t.Errorf("ComputeCommandEncoder = %d, want 1", n)
	}
	if n := h.rec.Count("SetComputePipelineState"); n != 2 {
		t.Errorf("SetComputePipelineState = %d, want 2", n)
	}
	// The set buffer, the kernel's two buffers, then the set buffer again.
	if n := h.rec.Count("SetBuffer"); n != 4 {
		t.Errorf("SetBuffer = %d, want 4", n)
	}
}

func TestUpdateBuffer(t *testing.T) {
	h := newHarness(t)
	dst := rhi.NewBuffer(64, rhi.BufferUsageUniform, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.UpdateBuffer(dst, 4, make([]byte, 8)))
	mustOK(t, h.cl.UpdateBuffer(dst, 2, make([]byte, 6)))
	mustOK(t, h.cl.UpdateBuffer(dst, 0, nil))
	mustOK(t, h.cl.End())

	if h.dev.updates != 2 {
		t.Errorf("staging writes = %d, want 2", h.dev.updates)
	}
	blits := h.rec.Find("CopyBuffer")
	if len(blits) != 1 || blits[0].Arg(1) != uint64(4) || blits[0].Arg(2) != uint64(8) {
		t.Errorf("CopyBuffer = %v, want one 8-byte blit to offset 4", blits)
	}
	if n := h.rec.Count("DispatchThreadgroups"); n != 1 {
		t.Errorf("DispatchThreadgroups = %d, want 1 for the unaligned update", n)
	}

	mustOK(t, h.cl.Commit(nil))
	if len(h.dev.returned) != 0 {
		t.Fatal("staging buffers returned before completion")
	}
	h.cb().complete()
	if len(h.dev.returned) != 2 {
		t.Errorf("returned staging buffers = %d, want 2", len(h.dev.returned))
	}
}

func stagingTexture(t *testing.T, desc rhi.TextureDescriptor) *rhi.Texture {
	t.Helper()
	buf := rhi.NewBuffer(rhi.StagingSize(desc), rhi.BufferUsageStagingWrite, nil, nil)
	tex, err := rhi.NewStagingTexture(desc, buf, nil)
	mustOK(t, err)
	return tex
}

func TestCopyStagingToTexturePerLayer(t *testing.T) {
	h := newHarness(t)
	desc := rhi.TextureDescriptor{
		Width: 8, Height: 8, ArrayLayers: 3,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}
	src := stagingTexture(t, desc)
	desc.Usage = rhi.TextureUsageSampled
	dst := rhi.NewTexture(desc, nil, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.CopyTexture(src, dst, rhi.TextureCopyRegion{Width: 8, Height: 8, LayerCount: 3}))

	calls := h.rec.Find("CopyBufferToTexture")
	if len(calls) != 3 {
		t.Fatalf("CopyBufferToTexture = %d, want 3", len(calls))
	}
	for i, c := range calls {
		wantOff := src.SubresourceLayout(0, uint32(i)).Offset
		if c.Arg(0) != wantOff || c.Arg(1) != uint32(32) || c.Arg(2) != uint32(0) || c.Arg(4) != uint32(i) {
			t.Errorf("layer %d = %v, want offset %d, 32-byte rows, no image pitch", i, c, wantOff)
		}
	}
}

func TestCopyTextureToStagingUsesDestinationLayout(t *testing.T) {
	h := newHarness(t)
	desc := rhi.TextureDescriptor{Width: 8, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}
	dst := stagingTexture(t, desc)
	desc.Usage = rhi.TextureUsageSampled
	src := rhi.NewTexture(desc, nil, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.CopyTexture(src, dst, rhi.TextureCopyRegion{DstX: 2, Width: 4, Height: 4}))

	calls := h.rec.Find("CopyTextureToBuffer")
	if len(calls) != 1 {
		t.Fatalf("CopyTextureToBuffer = %d, want 1", len(calls))
	}
	if c := calls[0]; c.Arg(3) != uint64(8) || c.Arg(4) != uint32(32) || c.Arg(5) != uint32(128) {
		t.Errorf("CopyTextureToBuffer = %v, want offset 8, 32-byte rows, 128-byte images", c)
	}
}

func TestCopyStagingToStagingPerRow(t *testing.T) {
	h := newHarness(t)
	desc := rhi.TextureDescriptor{Width: 8, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}
	src := stagingTexture(t, desc)
	dst := stagingTexture(t, desc)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.CopyTexture(src, dst, rhi.TextureCopyRegion{SrcY: 1, Width: 4, Height: 3}))

	rows := h.rec.Find("CopyBuffer")
	if len(rows) != 3 {
		t.Fatalf("CopyBuffer = %d, want 3 rows", len(rows))
	}
	for i, r := range rows {
		if r.Arg(0) != uint64(32*(i+1)) || r.Arg(1) != uint64(32*i) || r.Arg(2) != uint64(16) {
			t.Errorf("row %d = %v, want 16 bytes from %d to %d", i, r, 32*(i+1), 32*i)
		}
	}
}

func TestCopyTextureBetweenDeviceTextures(t *testing.T) {
	h := newHarness(t)
	src := newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)
	dst := newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.CopyTexture(src, dst, rhi.TextureCopyRegion{Width: 8, Height: 8}))

	calls := h.rec.Find("CopyTexture")
	if len(calls) != 1 || calls[0].Arg(2) != (Size{8, 8, 1}) {
		t.Errorf("CopyTexture = %v, want one 8x8x1 copy", calls)
	}
}

func TestResolveTexture(t *testing.T) {
	h := newHarness(t)
	src := rhi.NewTexture(rhi.TextureDescriptor{
		Width: 16, Height: 16, SampleCount: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  rhi.TextureUsageRenderTarget,
	}, nil, nil, nil)
	dst := newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetPipeline(rhi.NewComputePipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
	mustOK(t, h.cl.Dispatch(1, 1, 1))
	mustOK(t, h.cl.ResolveTexture(src, dst))

	renders := h.cb().renders
	if len(renders) != 1 {
		t.Fatalf("render encoders = %d, want 1", len(renders))
	}
	c := renders[0].desc.Color[0]
	if c.Store != StoreActionMultisampleResolve || c.Texture != src || c.ResolveTexture != dst {
		t.Errorf("resolve attachment = %+v, want %p resolved into %p", c, src, dst)
	}
	if h.rec.Index("EndEncoding") > h.rec.Index("RenderCommandEncoder") {
		t.Error("compute encoder still open when the resolve pass began")
	}
	if err := h.cl.ResolveTexture(dst, src); err == nil {
		t.Error("ResolveTexture() from a single-sampled texture should fail")
	}
}

func TestGenerateMipmaps(t *testing.T) {
	h := newHarness(t)
	tex := newTexture(rhi.TextureUsageSampled|rhi.TextureUsageGenerateMipmaps, gputypes.TextureFormatRGBA8Unorm, 3)
	single := newTexture(rhi.TextureUsageSampled|rhi.TextureUsageGenerateMipmaps, gputypes.TextureFormatRGBA8Unorm, 1)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.GenerateMipmaps(single))
	if n := h.rec.Count("BlitCommandEncoder"); n != 0 {
		t.Errorf("BlitCommandEncoder for a single level = %d, want 0", n)
	}
	mustOK(t, h.cl.GenerateMipmaps(tex))
	if n := h.rec.Count("GenerateMipmaps"); n != 1 {
		t.Errorf("GenerateMipmaps = %d, want 1", n)
	}
	if err := h.cl.GenerateMipmaps(newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 3)); err == nil {
		t.Error("GenerateMipmaps() without TextureUsageGenerateMipmaps should fail")
	}
}

func TestDebugLabelsFollowOpenEncoder(t *testing.T) {
	h := newHarness(t)
	src := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)
	dst := rhi.NewBuffer(64, rhi.BufferUsageVertex, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.PushDebugGroup("dropped"))
	mustOK(t, h.cl.InsertDebugMarker("dropped"))
	if n := len(h.rec.Calls()); n != 0 {
		t.Fatalf("calls without an encoder = %d, want 0", n)
	}
	mustOK(t, h.cl.CopyBuffer(src, dst, rhi.BufferCopyCommand{Length: 4}))
	mustOK(t, h.cl.PushDebugGroup("upload"))
	mustOK(t, h.cl.InsertDebugMarker("mark"))
	mustOK(t, h.cl.PopDebugGroup())

	for _, op := range []string{"PushDebugGroup", "InsertDebugSignpost", "PopDebugGroup"} {
		got := h.rec.Find(op)
		if len(got) != 1 || got[0].Arg(0) != "blit" {
			t.Errorf("%s = %v, want one call on the blit encoder", op, got)
		}
	}
}
