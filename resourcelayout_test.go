package rhi

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func mustLayout(t *testing.T, elems ...ResourceLayoutElement) *ResourceLayout {
	t.Helper()
	l, err := NewResourceLayout(elems, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceLayout: %v", err)
	}
	return l
}

func TestResourceLayout_SlotsPerKind(t *testing.T) {
	l := mustLayout(t,
		ResourceLayoutElement{Name: "camera", Kind: KindUniformBuffer, Stages: gputypes.ShaderStageVertex},
		ResourceLayoutElement{Name: "albedo", Kind: KindTextureReadOnly, Stages: gputypes.ShaderStageFragment},
		ResourceLayoutElement{Name: "linear", Kind: KindSampler, Stages: gputypes.ShaderStageFragment},
		ResourceLayoutElement{Name: "lights", Kind: KindStructuredBufferReadOnly, Stages: gputypes.ShaderStageFragment, Dynamic: true},
		ResourceLayoutElement{Name: "out", Kind: KindTextureReadWrite, Stages: gputypes.ShaderStageCompute},
		ResourceLayoutElement{Name: "counters", Kind: KindStructuredBufferReadWrite, Stages: gputypes.ShaderStageCompute},
	)

	want := []BindingSlot{
		{Slot: 0, Unified: 0},
		{Slot: 0, Unified: 1},
		{Slot: 0, Unified: 2},
		{Slot: 1, Unified: 3},
		{Slot: 1, Unified: 4},
		{Slot: 2, Unified: 5},
	}
	for i, w := range want {
		if got := l.Binding(i); got != w {
			t.Errorf("Binding(%d) = %+v, want %+v", i, got, w)
		}
	}
	if l.BufferCount() != 3 || l.TextureCount() != 2 || l.SamplerCount() != 1 {
		t.Errorf("counts = (%d, %d, %d), want (3, 2, 1)", l.BufferCount(), l.TextureCount(), l.SamplerCount())
	}
	if l.DynamicBufferCount() != 1 {
		t.Errorf("DynamicBufferCount() = %d, want 1", l.DynamicBufferCount())
	}
}

func TestResourceLayout_DynamicTextureRejected(t *testing.T) {
	_, err := NewResourceLayout([]ResourceLayoutElement{{Kind: KindTextureReadOnly, Dynamic: true}}, nil, nil)
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("err = %v, want ErrInvalidDescriptor", err)
	}
}

func TestResourceLayout_HALEntries(t *testing.T) {
	l := mustLayout(t,
		ResourceLayoutElement{Kind: KindUniformBuffer, Dynamic: true},
		ResourceLayoutElement{Kind: KindTextureReadWrite},
		ResourceLayoutElement{Kind: KindSampler},
	)
	entries := l.HALEntries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if b := entries[0].Buffer; b == nil || b.Type != gputypes.BufferBindingTypeUniform || !b.HasDynamicOffset {
		t.Errorf("entry 0 buffer = %+v, want dynamic uniform", b)
	}
	if entries[1].StorageTexture == nil {
		t.Error("entry 1 is not a storage texture")
	}
	if entries[2].Sampler == nil || entries[2].Binding != 2 {
		t.Errorf("entry 2 = %+v, want sampler at binding 2", entries[2])
	}
}

func TestResourceLayout_Compatible(t *testing.T) {
	a := mustLayout(t, ResourceLayoutElement{Kind: KindUniformBuffer})
	b := mustLayout(t, ResourceLayoutElement{Name: "other", Kind: KindUniformBuffer})
	c := mustLayout(t, ResourceLayoutElement{Kind: KindSampler})
	if !a.Compatible(b) {
		t.Error("layouts with matching kinds reported incompatible")
	}
	if a.Compatible(c) {
		t.Error("layouts with different kinds reported compatible")
	}
}
