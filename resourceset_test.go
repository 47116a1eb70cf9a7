package rhi

import (
	"errors"
	"testing"
)

func TestResourceSet_HoldsReferences(t *testing.T) {
	l := mustLayout(t,
		ResourceLayoutElement{Kind: KindUniformBuffer},
		ResourceLayoutElement{Kind: KindTextureReadOnly},
		ResourceLayoutElement{Kind: KindSampler},
	)
	bufReleased := false
	buf := NewBuffer(256, BufferUsageUniform, nil, func() { bufReleased = true })
	tex := NewTexture(TextureDescriptor{Width: 4, Height: 4, Usage: TextureUsageSampled}, nil, nil, nil)
	smp := NewSampler(nil, nil)

	set, err := NewResourceSet(l, []BindableResource{BufferRange{Buffer: buf}, tex, smp}, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceSet: %v", err)
	}
	if got := buf.RefCount().Count(); got != 2 {
		t.Errorf("buffer refs = %d, want 2", got)
	}
	if got := tex.RefCount().Count(); got != 2 {
		t.Errorf("texture refs = %d, want 2 (bound through its full view)", got)
	}
	if views := set.Views(KindTextureReadOnly); len(views) != 1 || views[0].Target() != tex {
		t.Errorf("Views = %v, want the texture's full view", views)
	}

	buf.Dispose()
	if bufReleased {
		t.Fatal("buffer released while the set holds it")
	}
	set.Dispose()
	if !bufReleased {
		t.Error("buffer not released after the set was disposed")
	}
}

func TestResourceSet_KindMismatch(t *testing.T) {
	l := mustLayout(t, ResourceLayoutElement{Kind: KindSampler})
	buf := NewBuffer(16, BufferUsageUniform, nil, nil)
	_, err := NewResourceSet(l, []BindableResource{BufferRange{Buffer: buf}}, nil, nil)
	if !errors.Is(err, ErrIncompatibleSet) {
		t.Errorf("err = %v, want ErrIncompatibleSet", err)
	}
	if got := buf.RefCount().Count(); got != 1 {
		t.Errorf("buffer refs = %d after failed set creation, want 1", got)
	}
}

func TestResourceSet_CountMismatch(t *testing.T) {
	l := mustLayout(t, ResourceLayoutElement{Kind: KindSampler}, ResourceLayoutElement{Kind: KindSampler})
	_, err := NewResourceSet(l, []BindableResource{NewSampler(nil, nil)}, nil, nil)
	if !errors.Is(err, ErrIncompatibleSet) {
		t.Errorf("err = %v, want ErrIncompatibleSet", err)
	}
}

func TestTextureView_FullViewDisposeIsNoop(t *testing.T) {
	tex := NewTexture(TextureDescriptor{Width: 1, Height: 1}, nil, nil, nil)
	tex.FullView().Dispose()
	if tex.Disposed() {
		t.Error("disposing the full view disposed the texture")
	}
}
