package vulkan

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/layout"
)

func newLayout(t *testing.T, kinds ...rhi.ResourceKind) *rhi.ResourceLayout {
	t.Helper()
	elems := make([]rhi.ResourceLayoutElement, len(kinds))
	for i, k := range kinds {
		elems[i] = rhi.ResourceLayoutElement{Kind: k, Stages: gputypes.ShaderStageCompute | gputypes.ShaderStageFragment}
	}
	l, err := rhi.NewResourceLayout(elems, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceLayout: %v", err)
	}
	return l
}

func newSet(t *testing.T, l *rhi.ResourceLayout, res ...rhi.BindableResource) *rhi.ResourceSet {
	t.Helper()
	s, err := rhi.NewResourceSet(l, res, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceSet: %v", err)
	}
	return s
}

func TestDispatchMovesStorageTexturesToGeneral(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	storage := newTexture(rhi.TextureUsageStorage|rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)
	sampled := newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)
	l := newLayout(t, rhi.KindTextureReadWrite, rhi.KindTextureReadOnly)
	compute := rhi.NewComputePipeline(rhi.PipelineDescriptor{ResourceLayouts: []*rhi.ResourceLayout{l}}, nil, nil, nil)
	set := newSet(t, l, storage, sampled)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetPipeline(compute))
	mustOK(t, h.cl.SetComputeResourceSet(0, set, nil))
	mustOK(t, h.cl.Dispatch(1, 1, 1))
	mustOK(t, h.cl.Dispatch(2, 1, 1))

	if got := storage.ImageLayout(0, 0); got != layout.General {
		t.Errorf("storage layout = %v, want General", got)
	}
	if got := sampled.ImageLayout(0, 0); got != layout.ShaderReadOnly {
		t.Errorf("sampled layout = %v, want ShaderReadOnly", got)
	}
	if n := h.rec.Count("BindResourceSets"); n != 1 {
		t.Errorf("BindResourceSets = %d, want 1", n)
	}
	if n := h.rec.Count("Dispatch"); n != 2 {
		t.Errorf("Dispatch = %d, want 2", n)
	}

	// The next render pass moves the storage texture back.
	fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.SetPipeline(rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	if got := storage.ImageLayout(0, 0); got != layout.ShaderReadOnly {
		t.Errorf("storage layout after render pass = %v, want ShaderReadOnly", got)
	}
	mustOK(t, h.cl.End())
}

func TestDispatchRequiresBoundSets(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	l := newLayout(t, rhi.KindTextureReadOnly)
	compute := rhi.NewComputePipeline(rhi.PipelineDescriptor{ResourceLayouts: []*rhi.ResourceLayout{l}}, nil, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetPipeline(compute))
	if err := h.cl.Dispatch(1, 1, 1); err == nil {
		t.Error("Dispatch() without a bound set should fail")
	}
}

func TestPipelineChangeRebindsSets(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	l := newLayout(t, rhi.KindTextureReadOnly)
	set := newSet(t, l, newTexture(rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1))
	desc := rhi.PipelineDescriptor{ResourceLayouts: []*rhi.ResourceLayout{l}}
	a := rhi.NewGraphicsPipeline(desc, nil, nil, nil)
	b := rhi.NewGraphicsPipeline(desc, nil, nil, nil)
	fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.SetPipeline(a))
	mustOK(t, h.cl.SetGraphicsResourceSet(0, set, nil))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	mustOK(t, h.cl.SetPipeline(a))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	if n := h.rec.Count("BindResourceSets"); n != 1 {
		t.Errorf("BindResourceSets with same pipeline = %d, want 1", n)
	}
	mustOK(t, h.cl.SetPipeline(b))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	if n := h.rec.Count("BindResourceSets"); n != 2 {
		t.Errorf("BindResourceSets after pipeline change = %d, want 2", n)
	}
}

func TestIndirectDraws(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)
	args := rhi.NewBuffer(256, rhi.BufferUsageIndirect, nil, nil)
	idx := rhi.NewBuffer(256, rhi.BufferUsageIndex, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.SetPipeline(rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
	mustOK(t, h.cl.DrawIndirect(args, 0, 2, 16))
	if err := h.cl.DrawIndexedIndirect(args, 0, 1, 20); err == nil {
		t.Error("DrawIndexedIndirect() without index buffer should fail")
	}
	mustOK(t, h.cl.SetIndexBuffer(idx, gputypes.IndexFormatUint16, 0))
	mustOK(t, h.cl.DrawIndexedIndirect(args, 0, 1, 20))

	if got := h.rec.Find("DrawIndirect"); len(got) != 1 || got[0].Arg(1) != uint32(2) {
		t.Errorf("DrawIndirect = %v, want one call with 2 draws", got)
	}
	if n := h.rec.Count("DrawIndexedIndirect"); n != 1 {
		t.Errorf("DrawIndexedIndirect = %d, want 1", n)
	}
}
