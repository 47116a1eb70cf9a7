package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindableResource is a resource that can occupy a resource set slot:
// BufferRange, *TextureView, *Texture or *Sampler.
type BindableResource interface {
	bindable()
}

func (BufferRange) bindable()  {}
func (*TextureView) bindable() {}
func (*Texture) bindable()     {}
func (*Sampler) bindable()     {}

// ResourceSet binds concrete resources to the slots of a ResourceLayout.
// It holds a reference to every bound resource until it is released.
type ResourceSet struct {
	resource
	layout    *ResourceLayout
	resources []BindableResource
	refCounts []*RefCount
	native    hal.BindGroup
}

// NewResourceSet validates resources against layout and wraps the native
// bind group, which may be nil. A *Texture is bound through its full view.
func NewResourceSet(layout *ResourceLayout, resources []BindableResource, native hal.BindGroup, release func()) (*ResourceSet, error) {
	if len(resources) != layout.Len() {
		return nil, fmt.Errorf("%w: %d resources for %d layout elements", ErrIncompatibleSet, len(resources), layout.Len())
	}
	s := &ResourceSet{
		layout:    layout,
		resources: make([]BindableResource, len(resources)),
		refCounts: make([]*RefCount, 0, len(resources)),
		native:    native,
	}
	for i, r := range resources {
		if t, ok := r.(*Texture); ok {
			r = t.FullView()
		}
		if err := checkKind(layout.Element(i).Kind, r); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		s.resources[i] = r
		s.refCounts = append(s.refCounts, refCountOf(r))
	}
	for _, rc := range s.refCounts {
		rc.Increment()
	}
	refs := s.refCounts
	s.resource = newResource(func() {
		if release != nil {
			release()
		}
		for _, rc := range refs {
			rc.Decrement()
		}
	})
	return s, nil
}

func checkKind(kind ResourceKind, r BindableResource) error {
	var ok bool
	switch r := r.(type) {
	case BufferRange:
		ok = kind.IsBuffer() && r.Buffer != nil
	case *TextureView:
		ok = kind.IsTexture() && r != nil
	case *Sampler:
		ok = kind == KindSampler && r != nil
	}
	if !ok {
		return fmt.Errorf("%w: %T cannot fill a %s slot", ErrIncompatibleSet, r, kind)
	}
	return nil
}

func refCountOf(r BindableResource) *RefCount {
	switch r := r.(type) {
	case BufferRange:
		return r.Buffer.RefCount()
	case *TextureView:
		return r.RefCount()
	case *Sampler:
		return r.RefCount()
	}
	return nil
}

// Layout returns the layout the set was created for.
func (s *ResourceSet) Layout() *ResourceLayout { return s.layout }

// Resource returns the resource bound at element i.
func (s *ResourceSet) Resource(i int) BindableResource { return s.resources[i] }

// Len returns the number of bound resources.
func (s *ResourceSet) Len() int { return len(s.resources) }

// RefCounts returns the ownership tokens of every bound resource. A
// recording that binds the set tracks them alongside the set's own token.
func (s *ResourceSet) RefCounts() []*RefCount { return s.refCounts }

// HAL returns the native bind group.
func (s *ResourceSet) HAL() hal.BindGroup { return s.native }

// Views returns the texture views bound to elements of kind.
func (s *ResourceSet) Views(kind ResourceKind) []*TextureView {
	var views []*TextureView
	for i, e := range s.layout.Elements() {
		if e.Kind == kind {
			views = append(views, s.resources[i].(*TextureView))
		}
	}
	return views
}

// HALEntries converts the bound resources to bind group entries, numbered
// as in ResourceLayout.HALEntries.
func (s *ResourceSet) HALEntries() []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, 0, len(s.resources))
	for i, r := range s.resources {
		var res gputypes.BindingResource
		switch r := r.(type) {
		case BufferRange:
			res = gputypes.BufferBinding{Buffer: handleOf(r.Buffer.HAL()), Offset: r.Offset, Size: r.Size}
		case *TextureView:
			res = gputypes.TextureViewBinding{TextureView: handleOf(r.HAL())}
		case *Sampler:
			res = gputypes.SamplerBinding{Sampler: handleOf(r.HAL())}
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: uint32(i), Resource: res})
	}
	return entries
}

func handleOf(h hal.NativeHandle) uintptr {
	if h == nil {
		return 0
	}
	return h.NativeHandle()
}
