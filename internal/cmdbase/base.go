// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cmdbase holds the lifecycle, validation and viewport state every
// backend command list shares. A backend embeds Base and calls its checks
// before translating a call.
package cmdbase

import (
	"fmt"

	"github.com/gogpu/rhi"
)

// State is the recording lifecycle state.
type State uint8

const (
	StateInitial State = iota
	StateRecording
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Base is the backend-independent part of a command list. It is owned by
// the recording goroutine.
type Base struct {
	cfg      rhi.CommandListConfig
	features rhi.Features
	name     string
	state    State
	disposed bool

	graphics    *rhi.Pipeline
	compute     *rhi.Pipeline
	framebuffer *rhi.Framebuffer
	hasIndex    bool

	graphicsSets []*rhi.ResourceSet
	computeSets  []*rhi.ResourceSet

	viewports      []rhi.Viewport
	scissors       []rhi.Rect
	viewportsDirty bool
	scissorsDirty  bool
}

// New returns a Base configured by cfg for a device with features.
func New(cfg rhi.CommandListConfig, features rhi.Features) Base {
	if !features.MultipleViewports {
		cfg.MaxViewports = 1
	}
	return Base{cfg: cfg, features: features, name: cfg.Name}
}

// Config returns the resolved configuration.
func (b *Base) Config() rhi.CommandListConfig { return b.cfg }

// Features returns the device features.
func (b *Base) Features() rhi.Features { return b.features }

// Name returns the debug name.
func (b *Base) Name() string { return b.name }

// SetName sets the debug name.
func (b *Base) SetName(name string) { b.name = name }

// State returns the lifecycle state.
func (b *Base) State() State { return b.state }

// Recording reports whether a recording is in progress.
func (b *Base) Recording() bool { return b.state == StateRecording }

// Disposed reports whether MarkDisposed was called.
func (b *Base) Disposed() bool { return b.disposed }

// MarkDisposed records disposal and reports whether this was the first
// call.
func (b *Base) MarkDisposed() bool {
	if b.disposed {
		return false
	}
	b.disposed = true
	return true
}

// Begin starts a recording and resets all recorded state.
func (b *Base) Begin() error {
	switch {
	case b.disposed:
		return fmt.Errorf("begin: %w", rhi.ErrDisposed)
	case b.state == StateRecording:
		return fmt.Errorf("begin: %w", rhi.ErrAlreadyRecording)
	}
	b.state = StateRecording
	b.graphics, b.compute, b.framebuffer = nil, nil, nil
	b.hasIndex = false
	clear(b.graphicsSets)
	clear(b.computeSets)
	b.graphicsSets, b.computeSets = b.graphicsSets[:0], b.computeSets[:0]
	b.viewports, b.scissors = b.viewports[:0], b.scissors[:0]
	b.viewportsDirty, b.scissorsDirty = false, false
	return nil
}

// End finishes the recording.
func (b *Base) End() error {
	if err := b.Check("end"); err != nil {
		return err
	}
	b.state = StateEnded
	return nil
}

// Check returns an error when op cannot be recorded now.
func (b *Base) Check(op string) error {
	switch {
	case b.disposed:
		return fmt.Errorf("%s: %w", op, rhi.ErrDisposed)
	case b.state != StateRecording:
		return fmt.Errorf("%s: %w", op, rhi.ErrNotRecording)
	}
	return nil
}

// SetPipeline records p as the graphics or compute pipeline and reports
// whether the pipeline of that kind changed.
func (b *Base) SetPipeline(p *rhi.Pipeline) (changed bool, err error) {
	if err := b.Check("set pipeline"); err != nil {
		return false, err
	}
	if p == nil {
		return false, fmt.Errorf("set pipeline: %w", rhi.ErrNoPipeline)
	}
	if p.IsCompute() {
		changed = b.compute != p
		b.compute = p
		b.computeSets = resize(b.computeSets, len(p.ResourceLayouts()))
	} else {
		changed = b.graphics != p
		b.graphics = p
		b.graphicsSets = resize(b.graphicsSets, len(p.ResourceLayouts()))
	}
	return changed, nil
}

func resize(s []*rhi.ResourceSet, n int) []*rhi.ResourceSet {
	if n <= len(s) {
		return s
	}
	return append(s, make([]*rhi.ResourceSet, n-len(s))...)
}

// GraphicsPipeline returns the bound graphics pipeline, or nil.
func (b *Base) GraphicsPipeline() *rhi.Pipeline { return b.graphics }

// ComputePipeline returns the bound compute pipeline, or nil.
func (b *Base) ComputePipeline() *rhi.Pipeline { return b.compute }

// BindingModel returns the binding model of the bound graphics pipeline,
// resolved against the configured default.
func (b *Base) BindingModel() rhi.BindingModel {
	var m rhi.BindingModel
	if b.graphics != nil {
		m = b.graphics.BindingModel()
	}
	return m.Resolve(b.cfg.BindingModel)
}

// SetResourceSet checks set against the layout the bound pipeline of the
// given kind declares at slot, and records it.
func (b *Base) SetResourceSet(compute bool, slot uint32, set *rhi.ResourceSet, offsets []uint32) error {
	op := "set graphics resource set"
	p, sets := b.graphics, &b.graphicsSets
	if compute {
		op = "set compute resource set"
		p, sets = b.compute, &b.computeSets
	}
	if err := b.Check(op); err != nil {
		return err
	}
	if set == nil {
		return fmt.Errorf("%s %d: nil set: %w", op, slot, rhi.ErrIncompatibleSet)
	}
	if p != nil {
		layouts := p.ResourceLayouts()
		if int(slot) >= len(layouts) {
			return fmt.Errorf("%s %d: pipeline declares %d sets: %w", op, slot, len(layouts), rhi.ErrIndexOutOfRange)
		}
		if !layouts[slot].Compatible(set.Layout()) {
			return fmt.Errorf("%s %d: %w", op, slot, rhi.ErrIncompatibleSet)
		}
	}
	if want := set.Layout().DynamicBufferCount(); uint32(len(offsets)) != want {
		return fmt.Errorf("%s %d: %d dynamic offsets, layout has %d dynamic buffers: %w",
			op, slot, len(offsets), want, rhi.ErrIncompatibleSet)
	}
	*sets = resize(*sets, int(slot)+1)
	(*sets)[slot] = set
	return nil
}

// SetVertexBuffer checks a vertex buffer bind.
func (b *Base) SetVertexBuffer(index uint32, buf *rhi.Buffer, offset uint64) error {
	if err := b.Check("set vertex buffer"); err != nil {
		return err
	}
	if buf == nil || offset > buf.Size() {
		return fmt.Errorf("set vertex buffer %d: offset %d outside buffer: %w", index, offset, rhi.ErrIndexOutOfRange)
	}
	if b.graphics != nil && index >= b.graphics.VertexBufferCount() {
		return fmt.Errorf("set vertex buffer %d: pipeline has %d vertex buffers: %w",
			index, b.graphics.VertexBufferCount(), rhi.ErrIndexOutOfRange)
	}
	return nil
}

// SetIndexBuffer checks and records an index buffer bind.
func (b *Base) SetIndexBuffer(buf *rhi.Buffer, offset uint64) error {
	if err := b.Check("set index buffer"); err != nil {
		return err
	}
	if buf == nil || offset > buf.Size() {
		return fmt.Errorf("set index buffer: offset %d outside buffer: %w", offset, rhi.ErrIndexOutOfRange)
	}
	b.hasIndex = true
	return nil
}

// SetFramebuffer checks and records fb and resets the viewports and
// scissors to one zeroed entry per color target.
func (b *Base) SetFramebuffer(fb *rhi.Framebuffer) error {
	if err := b.Check("set framebuffer"); err != nil {
		return err
	}
	if fb == nil {
		return fmt.Errorf("set framebuffer: %w", rhi.ErrNoFramebuffer)
	}
	b.framebuffer = fb
	n := min(max(len(fb.ColorTargets()), 1), int(b.cfg.MaxViewports))
	b.viewports = append(b.viewports[:0], make([]rhi.Viewport, n)...)
	b.scissors = append(b.scissors[:0], make([]rhi.Rect, n)...)
	b.viewportsDirty, b.scissorsDirty = false, false
	return nil
}

// Framebuffer returns the bound framebuffer, or nil.
func (b *Base) Framebuffer() *rhi.Framebuffer { return b.framebuffer }

// PreDraw checks that a draw can be recorded.
func (b *Base) PreDraw(op string, indexed bool) error {
	if err := b.Check(op); err != nil {
		return err
	}
	switch {
	case b.graphics == nil:
		return fmt.Errorf("%s: %w", op, rhi.ErrNoPipeline)
	case b.framebuffer == nil:
		return fmt.Errorf("%s: %w", op, rhi.ErrNoFramebuffer)
	case indexed && !b.hasIndex:
		return fmt.Errorf("%s: %w", op, rhi.ErrNoIndexBuffer)
	}
	return checkSetsBound(op, b.graphicsSets, len(b.graphics.ResourceLayouts()))
}

// PreDispatch checks that a dispatch can be recorded.
func (b *Base) PreDispatch(op string) error {
	if err := b.Check(op); err != nil {
		return err
	}
	if b.compute == nil {
		return fmt.Errorf("%s: %w", op, rhi.ErrNoPipeline)
	}
	return checkSetsBound(op, b.computeSets, len(b.compute.ResourceLayouts()))
}

func checkSetsBound(op string, sets []*rhi.ResourceSet, n int) error {
	for i := range n {
		if i >= len(sets) || sets[i] == nil {
			return fmt.Errorf("%s: resource set %d not bound: %w", op, i, rhi.ErrIncompatibleSet)
		}
	}
	return nil
}

// Sizes of the indirect argument records.
const (
	DrawIndirectSize        = 16
	DrawIndexedIndirectSize = 20
	DispatchIndirectSize    = 12
)

// CheckIndirect checks that drawCount argument records of argSize bytes,
// stride apart from offset, lie inside buf.
func (b *Base) CheckIndirect(op string, buf *rhi.Buffer, offset, argSize uint64, drawCount, stride uint32) error {
	if buf == nil {
		return fmt.Errorf("%s: nil argument buffer: %w", op, rhi.ErrInvalidCopy)
	}
	if offset%4 != 0 {
		return fmt.Errorf("%s: offset %d not 4-byte aligned: %w", op, offset, rhi.ErrInvalidCopy)
	}
	end := offset + uint64(max(drawCount, 1)-1)*uint64(stride) + argSize
	if end > buf.Size() {
		return fmt.Errorf("%s: arguments end at %d past buffer size %d: %w", op, end, buf.Size(), rhi.ErrInvalidCopy)
	}
	return nil
}

// CheckCopyBuffer checks every region of a buffer copy against both
// buffers.
func (b *Base) CheckCopyBuffer(src, dst *rhi.Buffer, regions []rhi.BufferCopyCommand) error {
	if err := b.Check("copy buffer"); err != nil {
		return err
	}
	if src == nil || dst == nil {
		return fmt.Errorf("copy buffer: nil buffer: %w", rhi.ErrInvalidCopy)
	}
	for i, r := range regions {
		if r.ReadOffset+r.Length > src.Size() || r.WriteOffset+r.Length > dst.Size() {
			return fmt.Errorf("copy buffer: region %d (%+v) exceeds source %d or destination %d: %w",
				i, r, src.Size(), dst.Size(), rhi.ErrInvalidCopy)
		}
	}
	return nil
}

// CheckCopyTexture checks a texture copy region against both textures.
func (b *Base) CheckCopyTexture(src, dst *rhi.Texture, r rhi.TextureCopyRegion) error {
	if err := b.Check("copy texture"); err != nil {
		return err
	}
	if src == nil || dst == nil {
		return fmt.Errorf("copy texture: nil texture: %w", rhi.ErrInvalidCopy)
	}
	check := func(what string, t *rhi.Texture, x, y, z, mip, layer uint32) error {
		if mip >= t.MipLevels() || layer+max(r.LayerCount, 1) > t.ActualArrayLayers() {
			return fmt.Errorf("copy texture: %s mip %d layers %d+%d outside texture: %w",
				what, mip, layer, max(r.LayerCount, 1), rhi.ErrInvalidCopy)
		}
		w, h, d := t.MipDimensions(mip)
		if x+r.Width > w || y+r.Height > h || z+max(r.Depth, 1) > d {
			return fmt.Errorf("copy texture: %s region exceeds mip %d extent %dx%dx%d: %w",
				what, mip, w, h, d, rhi.ErrInvalidCopy)
		}
		return nil
	}
	if err := check("source", src, r.SrcX, r.SrcY, r.SrcZ, r.SrcMipLevel, r.SrcBaseArrayLayer); err != nil {
		return err
	}
	return check("destination", dst, r.DstX, r.DstY, r.DstZ, r.DstMipLevel, r.DstBaseArrayLayer)
}

// CheckUpdateBuffer checks a buffer update.
func (b *Base) CheckUpdateBuffer(dst *rhi.Buffer, offset uint64, n int) error {
	if err := b.Check("update buffer"); err != nil {
		return err
	}
	if dst == nil || offset+uint64(n) > dst.Size() {
		return fmt.Errorf("update buffer: %d bytes at %d outside buffer: %w", n, offset, rhi.ErrInvalidCopy)
	}
	return nil
}

// CheckResolve checks a multisample resolve.
func (b *Base) CheckResolve(src, dst *rhi.Texture) error {
	if err := b.Check("resolve texture"); err != nil {
		return err
	}
	if src == nil || dst == nil {
		return fmt.Errorf("resolve texture: nil texture: %w", rhi.ErrInvalidCopy)
	}
	if src.SampleCount() <= 1 || dst.SampleCount() != 1 {
		return fmt.Errorf("resolve texture: %d samples into %d: %w", src.SampleCount(), dst.SampleCount(), rhi.ErrInvalidCopy)
	}
	return nil
}

// CheckGenerateMipmaps checks a mipmap generation request.
func (b *Base) CheckGenerateMipmaps(t *rhi.Texture) error {
	if err := b.Check("generate mipmaps"); err != nil {
		return err
	}
	if t == nil || !t.Usage().Has(rhi.TextureUsageGenerateMipmaps) {
		return fmt.Errorf("generate mipmaps: texture lacks TextureUsageGenerateMipmaps: %w", rhi.ErrInvalidDescriptor)
	}
	return nil
}
