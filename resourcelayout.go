// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ResourceLayoutElement declares one binding of a resource layout.
type ResourceLayoutElement struct {
	Name   string
	Kind   ResourceKind
	Stages gputypes.ShaderStages

	// Dynamic marks a buffer binding whose offset is supplied at bind time.
	Dynamic bool
}

// BindingSlot is the position of one element in the native binding spaces.
type BindingSlot struct {
	// Slot is the zero-based index within the element's kind: buffers,
	// textures or samplers.
	Slot uint32

	// Unified is the zero-based index across all kinds, in declaration order.
	Unified uint32
}

// ResourceLayout is the declared shape of one resource set. Binding slots
// and per-kind totals are computed once at creation and shared by every
// command list that binds a set of this layout.
type ResourceLayout struct {
	resource
	elements     []ResourceLayoutElement
	slots        []BindingSlot
	bufferCount  uint32
	textureCount uint32
	samplerCount uint32
	dynamicCount uint32
	native       hal.BindGroupLayout
}

// NewResourceLayout computes binding slots for elements and wraps the
// native layout, which may be nil.
func NewResourceLayout(elements []ResourceLayoutElement, native hal.BindGroupLayout, release func()) (*ResourceLayout, error) {
	l := &ResourceLayout{
		resource: newResource(release),
		elements: append([]ResourceLayoutElement(nil), elements...),
		slots:    make([]BindingSlot, len(elements)),
		native:   native,
	}
	for i, e := range elements {
		if e.Dynamic && !e.Kind.IsBuffer() {
			return nil, fmt.Errorf("%w: element %d (%s) is dynamic but not a buffer", ErrInvalidDescriptor, i, e.Kind)
		}
		slot := BindingSlot{Unified: uint32(i)}
		switch {
		case e.Kind.IsBuffer():
			slot.Slot = l.bufferCount
			l.bufferCount++
			if e.Dynamic {
				l.dynamicCount++
			}
		case e.Kind.IsTexture():
			slot.Slot = l.textureCount
			l.textureCount++
		case e.Kind == KindSampler:
			slot.Slot = l.samplerCount
			l.samplerCount++
		default:
			return nil, fmt.Errorf("%w: element %d has unknown kind %s", ErrInvalidDescriptor, i, e.Kind)
		}
		l.slots[i] = slot
	}
	return l, nil
}

// Len returns the number of elements.
func (l *ResourceLayout) Len() int { return len(l.elements) }

// Element returns the i-th element.
func (l *ResourceLayout) Element(i int) ResourceLayoutElement { return l.elements[i] }

// Elements returns the declared elements. The slice must not be modified.
func (l *ResourceLayout) Elements() []ResourceLayoutElement { return l.elements }

// Binding returns the binding slots of the i-th element.
func (l *ResourceLayout) Binding(i int) BindingSlot { return l.slots[i] }

// BufferCount returns the number of buffer elements.
func (l *ResourceLayout) BufferCount() uint32 { return l.bufferCount }

// TextureCount returns the number of texture elements.
func (l *ResourceLayout) TextureCount() uint32 { return l.textureCount }

// SamplerCount returns the number of sampler elements.
func (l *ResourceLayout) SamplerCount() uint32 { return l.samplerCount }

// DynamicBufferCount returns the number of dynamic buffer elements, which
// is the length of the offset array SetGraphicsResourceSet expects.
func (l *ResourceLayout) DynamicBufferCount() uint32 { return l.dynamicCount }

// HAL returns the native bind group layout.
func (l *ResourceLayout) HAL() hal.BindGroupLayout { return l.native }

// Compatible reports whether sets created for o can be bound where l is
// declared: the elements must match kind by kind.
func (l *ResourceLayout) Compatible(o *ResourceLayout) bool {
	if l == o {
		return true
	}
	if len(l.elements) != len(o.elements) {
		return false
	}
	for i := range l.elements {
		a, b := l.elements[i], o.elements[i]
		if a.Kind != b.Kind || a.Dynamic != b.Dynamic {
			return false
		}
	}
	return true
}

// HALEntries converts the layout to bind group layout entries, numbering
// bindings in declaration order.
func (l *ResourceLayout) HALEntries() []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, len(l.elements))
	for i, e := range l.elements {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: e.Stages,
		}
		switch e.Kind {
		case KindUniformBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, HasDynamicOffset: e.Dynamic}
		case KindStructuredBufferReadOnly:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage, HasDynamicOffset: e.Dynamic}
		case KindStructuredBufferReadWrite:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage, HasDynamicOffset: e.Dynamic}
		case KindTextureReadOnly:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case KindTextureReadWrite:
			entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessReadWrite,
				Format:        gputypes.TextureFormatRGBA8Unorm,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case KindSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		}
		entries[i] = entry
	}
	return entries
}
