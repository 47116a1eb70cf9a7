// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layout

import "fmt"

// Range is a rectangular block of subresources: MipCount levels starting at
// BaseMip, for each of LayerCount layers starting at BaseLayer.
type Range struct {
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// Emitter records one barrier into a native command stream.
type Emitter func(Barrier)

// Subresources is the (mip level, array layer) grid of current layouts for
// one texture. It is owned by the texture and mutated only through
// Transition and TransitionNonmatching.
//
// Subresources is not safe for concurrent use. A texture is recorded into
// one command list at a time.
type Subresources struct {
	mips    uint32
	layers  uint32
	aspect  Aspect
	layouts []Layout
}

// NewSubresources creates a grid with every subresource in the initial layout.
func NewSubresources(mips, layers uint32, initial Layout, aspect Aspect) *Subresources {
	if mips == 0 {
		mips = 1
	}
	if layers == 0 {
		layers = 1
	}
	s := &Subresources{
		mips:    mips,
		layers:  layers,
		aspect:  aspect,
		layouts: make([]Layout, mips*layers),
	}
	for i := range s.layouts {
		s.layouts[i] = initial
	}
	return s
}

// MipLevels returns the number of mip levels tracked.
func (s *Subresources) MipLevels() uint32 { return s.mips }

// ArrayLayers returns the number of array layers tracked.
func (s *Subresources) ArrayLayers() uint32 { return s.layers }

// Aspect returns the image aspect used for emitted barriers.
func (s *Subresources) Aspect() Aspect { return s.aspect }

// Full returns the range covering every subresource.
func (s *Subresources) Full() Range {
	return Range{MipCount: s.mips, LayerCount: s.layers}
}

func (s *Subresources) index(mip, layer uint32) int {
	if mip >= s.mips || layer >= s.layers {
		panic(fmt.Sprintf("layout: subresource (mip %d, layer %d) outside %dx%d grid", mip, layer, s.mips, s.layers))
	}
	return int(layer*s.mips + mip)
}

// Get returns the layout of one subresource.
func (s *Subresources) Get(mip, layer uint32) Layout {
	return s.layouts[s.index(mip, layer)]
}

// Set overwrites the layout of one subresource without emitting a barrier.
// It is used when the layout changes as a side effect of native work the
// tracker did not issue, such as a render pass final layout.
func (s *Subresources) Set(mip, layer uint32, l Layout) {
	s.layouts[s.index(mip, layer)] = l
}

// SetRange overwrites the layout of every subresource in r.
func (s *Subresources) SetRange(r Range, l Layout) {
	for layer := r.BaseLayer; layer < r.BaseLayer+r.LayerCount; layer++ {
		for mip := r.BaseMip; mip < r.BaseMip+r.MipCount; mip++ {
			s.Set(mip, layer, l)
		}
	}
}

// Uniform reports whether every subresource in r shares one layout, and
// returns it.
func (s *Subresources) Uniform(r Range) (Layout, bool) {
	first := s.Get(r.BaseMip, r.BaseLayer)
	for layer := r.BaseLayer; layer < r.BaseLayer+r.LayerCount; layer++ {
		for mip := r.BaseMip; mip < r.BaseMip+r.MipCount; mip++ {
			if s.Get(mip, layer) != first {
				return first, false
			}
		}
	}
	return first, true
}

// Transition moves r to newLayout. The old layout is read from the first
// subresource of r; every subresource in r is expected to share it, and with
// the rhidebug build tag a mixed range panics.
//
// When the range is already in newLayout nothing is emitted and Transition
// returns false. Otherwise one barrier covering r is emitted and every
// subresource in r records newLayout.
func (s *Subresources) Transition(r Range, newLayout Layout, emit Emitter) bool {
	if r.MipCount == 0 || r.LayerCount == 0 {
		return false
	}
	old := s.Get(r.BaseMip, r.BaseLayer)
	if debugChecks {
		if _, ok := s.Uniform(r); !ok {
			panic(fmt.Sprintf("layout: mixed layouts in range %+v, expected uniform %v", r, old))
		}
	}
	if old == newLayout {
		return false
	}
	emit(s.barrier(old, newLayout, r))
	s.SetRange(r, newLayout)
	return true
}

// TransitionNonmatching moves r to newLayout one subresource at a time. It
// is used where a range legitimately holds several layouts, such as mipmap
// generation. It returns the number of barriers emitted.
func (s *Subresources) TransitionNonmatching(r Range, newLayout Layout, emit Emitter) int {
	n := 0
	for layer := r.BaseLayer; layer < r.BaseLayer+r.LayerCount; layer++ {
		for mip := r.BaseMip; mip < r.BaseMip+r.MipCount; mip++ {
			old := s.Get(mip, layer)
			if old == newLayout {
				continue
			}
			one := Range{BaseMip: mip, MipCount: 1, BaseLayer: layer, LayerCount: 1}
			emit(s.barrier(old, newLayout, one))
			s.Set(mip, layer, newLayout)
			n++
		}
	}
	return n
}

func (s *Subresources) barrier(old, newLayout Layout, r Range) Barrier {
	srcStage, srcAccess, dstStage, dstAccess := Masks(old, newLayout)
	return Barrier{
		Old:       old,
		New:       newLayout,
		SrcStage:  srcStage,
		DstStage:  dstStage,
		SrcAccess: srcAccess,
		DstAccess: dstAccess,
		Aspect:    s.aspect,
		Range:     r,
	}
}

// BackLayout returns the steady-state layout implied by a texture's usage:
// sampled textures rest in ShaderReadOnly, render targets in their
// attachment layout, anything else in General.
func BackLayout(sampled, renderTarget, depthStencil bool) Layout {
	switch {
	case sampled:
		return ShaderReadOnly
	case renderTarget && depthStencil:
		return DepthStencilAttachment
	case renderTarget:
		return ColorAttachment
	default:
		return General
	}
}
