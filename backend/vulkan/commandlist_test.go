package vulkan

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	"github.com/gogpu/rhi/internal/layout"
)

func TestNewCommandListUnsupportedDevice(t *testing.T) {
	_, err := NewCommandList(&fakeDevice{})
	if !errors.Is(err, backend.ErrUnsupportedDevice) {
		t.Fatalf("NewCommandList() error = %v, want ErrUnsupportedDevice", err)
	}
}

func TestRegisteredBackend(t *testing.T) {
	b := backend.Get(backend.Vulkan)
	if b == nil {
		t.Fatal("vulkan backend not registered")
	}
	if _, err := b.NewCommandList(&fakeDevice{}); !errors.Is(err, backend.ErrUnsupportedDevice) {
		t.Errorf("NewCommandList() error = %v, want ErrUnsupportedDevice", err)
	}
}

func TestCommandListClearOnlyRecording(t *testing.T) {
	h := newHarness(t, rhi.Features{ClipSpaceYInverted: true})
	color := newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1)
	fb := newFramebuffer(t, color, nil)
	base := fb.RefCount().Count()

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.ClearColorTarget(0, red))
	mustOK(t, h.cl.End())

	cb := h.cb()
	if len(cb.passes) != 1 {
		t.Fatalf("render passes = %d, want 1", len(cb.passes))
	}
	if got := cb.passes[0].Color[0]; got.Op != LoadOpClear || got.Color != red {
		t.Errorf("color load = %+v, want clear to red", got)
	}
	if n := h.rec.Count("EndRenderPass"); n != 1 {
		t.Errorf("EndRenderPass = %d, want 1", n)
	}
	if got := color.ImageLayout(0, 0); got != layout.ColorAttachment {
		t.Errorf("attachment layout = %v, want ColorAttachment", got)
	}

	sub, err := h.cl.Submit()
	mustOK(t, err)
	if fb.RefCount().Count() <= base {
		t.Error("submission should hold the framebuffer")
	}
	h.cl.Complete(sub)
	if got := fb.RefCount().Count(); got != base {
		t.Errorf("framebuffer refs after Complete = %d, want %d", got, base)
	}

	h.cl.Dispose()
	if h.alloc.freed != 1 {
		t.Errorf("freed command buffers = %d, want 1", h.alloc.freed)
	}
}

func TestCommandListReusesCompletedBuffer(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	for range 2 {
		mustOK(t, h.cl.Begin())
		mustOK(t, h.cl.End())
		cb, err := h.cl.Submit()
		mustOK(t, err)
		h.cl.Complete(cb)
	}
	if len(h.alloc.allocated) != 1 {
		t.Errorf("allocated = %d, want 1", len(h.alloc.allocated))
	}
	if n := h.rec.Count("Reset"); n != 1 {
		t.Errorf("Reset = %d, want 1", n)
	}
}

func TestCommandListSubmitRequiresEnded(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	mustOK(t, h.cl.Begin())
	if _, err := h.cl.Submit(); !errors.Is(err, rhi.ErrNotRecording) {
		t.Errorf("Submit() while recording error = %v, want ErrNotRecording", err)
	}
}

func TestCommandListDrawBindsStateOnce(t *testing.T) {
	h := newHarness(t, rhi.Features{ClipSpaceYInverted: true})
	fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)
	p := rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{VertexBufferCount: 1}, nil, nil, nil)
	vb := rhi.NewBuffer(256, rhi.BufferUsageVertex, nil, nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.SetPipeline(p))
	mustOK(t, h.cl.SetVertexBuffer(0, vb, 0))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	mustOK(t, h.cl.Draw(3, 1, 3, 0))
	mustOK(t, h.cl.End())

	for op, want := range map[string]int{
		"BeginRenderPass":   1,
		"EndRenderPass":     1,
		"BindPipeline":      1,
		"BindVertexBuffers": 1,
		"SetViewports":      1,
		"SetScissors":       1,
		"Draw":              2,
	} {
		if n := h.rec.Count(op); n != want {
			t.Errorf("%s = %d, want %d", op, n, want)
		}
	}

	ops := h.rec.Ops()
	begin, end := -1, -1
	for i, op := range ops {
		switch op {
		case "BeginRenderPass":
			begin = i
		case "EndRenderPass":
			end = i
		case "Draw":
			if begin < 0 || end >= 0 {
				t.Errorf("Draw at %d outside the render pass: %v", i, ops)
			}
		}
	}
}

func TestCommandListDrawErrors(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	if err := h.cl.Draw(3, 1, 0, 0); !errors.Is(err, rhi.ErrNotRecording) {
		t.Errorf("Draw() before Begin error = %v, want ErrNotRecording", err)
	}
	mustOK(t, h.cl.Begin())
	if err := h.cl.Draw(3, 1, 0, 0); !errors.Is(err, rhi.ErrNoPipeline) {
		t.Errorf("Draw() without pipeline error = %v, want ErrNoPipeline", err)
	}
	mustOK(t, h.cl.SetPipeline(rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
	if err := h.cl.Draw(3, 1, 0, 0); !errors.Is(err, rhi.ErrNoFramebuffer) {
		t.Errorf("Draw() without framebuffer error = %v, want ErrNoFramebuffer", err)
	}
	if h.rec.Count("Draw") != 0 {
		t.Error("rejected draws reached the command buffer")
	}
}

func TestCommandListViewportFlip(t *testing.T) {
	tests := []struct {
		name       string
		inverted   bool
		wantY      float32
		wantHeight float32
	}{
		{"y up flips", false, 16, -16},
		{"y down unchanged", true, 0, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, rhi.Features{ClipSpaceYInverted: tt.inverted})
			fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)
			mustOK(t, h.cl.Begin())
			mustOK(t, h.cl.SetFramebuffer(fb))
			mustOK(t, h.cl.SetPipeline(rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
			mustOK(t, h.cl.Draw(3, 1, 0, 0))

			vp := h.cb().viewport
			if len(vp) != 1 {
				t.Fatalf("viewports = %d, want 1", len(vp))
			}
			if vp[0].Y != tt.wantY || vp[0].Height != tt.wantHeight {
				t.Errorf("viewport = %+v, want Y %v height %v", vp[0], tt.wantY, tt.wantHeight)
			}
		})
	}
}

func TestSetFramebufferAppliesQueuedClears(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	colorA := newTexture(rhi.TextureUsageRenderTarget|rhi.TextureUsageSampled, gputypes.TextureFormatRGBA8Unorm, 1)
	fbA := newFramebuffer(t, colorA, nil)
	fbB := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), nil)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fbA))
	mustOK(t, h.cl.ClearColorTarget(0, red))
	mustOK(t, h.cl.SetFramebuffer(fbB))

	passes := h.cb().passes
	if len(passes) != 1 || passes[0].Framebuffer != fbA {
		t.Fatalf("passes = %d, want one on the first framebuffer", len(passes))
	}
	if !passes[0].Cleared() {
		t.Error("queued clear was not applied to the first framebuffer")
	}
	if got := colorA.ImageLayout(0, 0); got != layout.ShaderReadOnly {
		t.Errorf("sampled attachment layout = %v, want ShaderReadOnly", got)
	}
	mustOK(t, h.cl.End())
}

func TestClearDepthStencilInsidePass(t *testing.T) {
	h := newHarness(t, rhi.Features{})
	depth := newTexture(rhi.TextureUsageDepthStencil, gputypes.TextureFormatDepth24PlusStencil8, 1)
	fb := newFramebuffer(t, newTexture(rhi.TextureUsageRenderTarget, gputypes.TextureFormatRGBA8Unorm, 1), depth)

	mustOK(t, h.cl.Begin())
	mustOK(t, h.cl.SetFramebuffer(fb))
	mustOK(t, h.cl.SetPipeline(rhi.NewGraphicsPipeline(rhi.PipelineDescriptor{}, nil, nil, nil)))
	mustOK(t, h.cl.Draw(3, 1, 0, 0))
	mustOK(t, h.cl.ClearDepthStencil(1, 0))
	mustOK(t, h.cl.End())

	if n := h.rec.Count("BeginRenderPass"); n != 1 {
		t.Errorf("BeginRenderPass = %d, want 1", n)
	}
	if n := h.rec.Count("ClearAttachments"); n != 1 {
		t.Errorf("ClearAttachments = %d, want 1", n)
	}
	if got := depth.ImageLayout(0, 0); got != layout.DepthStencilAttachment {
		t.Errorf("depth layout = %v, want DepthStencilAttachment", got)
	}
}

func TestCommandListDebugGroups(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		h := newHarness(t, rhi.Features{DebugMarkers: true})
		mustOK(t, h.cl.Begin())
		mustOK(t, h.cl.PushDebugGroup("frame"))
		mustOK(t, h.cl.InsertDebugMarker("mark"))
		mustOK(t, h.cl.PushDebugGroup("pass"))
		mustOK(t, h.cl.PopDebugGroup())
		mustOK(t, h.cl.End())
		if n := h.rec.Count("BeginDebugLabel"); n != 2 {
			t.Errorf("BeginDebugLabel = %d, want 2", n)
		}
		if n := h.rec.Count("EndDebugLabel"); n != 2 {
			t.Errorf("EndDebugLabel = %d, want 2 (one closed at End)", n)
		}
	})
	t.Run("unsupported", func(t *testing.T) {
		h := newHarness(t, rhi.Features{})
		mustOK(t, h.cl.Begin())
		mustOK(t, h.cl.PushDebugGroup("frame"))
		mustOK(t, h.cl.InsertDebugMarker("mark"))
		mustOK(t, h.cl.PopDebugGroup())
		mustOK(t, h.cl.End())
		for _, op := range []string{"BeginDebugLabel", "InsertDebugLabel", "EndDebugLabel"} {
			if n := h.rec.Count(op); n != 0 {
				t.Errorf("%s = %d, want 0", op, n)
			}
		}
	})
}
