// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package encoder implements the encoder state machine shared by every
// backend command list.
//
// At most one of render, compute and copy work is open at a time. Render
// passes are begun lazily, at the first draw or clear that needs one, and
// clears queued before that point are folded into the pass begin. The
// backend supplies the native side through the Passes interface.
package encoder

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// Mode is the kind of native encoder currently open.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeRender
	ModeCompute
	ModeCopy
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeRender:
		return "render"
	case ModeCompute:
		return "compute"
	case ModeCopy:
		return "copy"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// PassBegin describes a render pass to open.
type PassBegin struct {
	Framebuffer *rhi.Framebuffer

	// First is set for the first pass on a framebuffer since it was bound,
	// when earlier contents of the attachments may be discarded.
	First bool

	// Clears are applied as attachment load operations. Attachments
	// without a clear load their contents.
	Clears Clears
}

// Passes opens and closes native encoders.
type Passes interface {
	BeginRenderPass(p PassBegin) error
	EndRenderPass() error
	BeginCompute() error
	EndCompute() error
	BeginCopy() error
	EndCopy() error
}

// AttachmentClearer is implemented by backends that can clear an
// attachment inside an open render pass. When available, a pass with only
// some attachments cleared is begun as a load pass and the queued clears
// are issued through it; otherwise every queued clear becomes a load
// operation of the pass.
type AttachmentClearer interface {
	ClearColorAttachment(fb *rhi.Framebuffer, index uint32, c gputypes.Color) error
	ClearDepthStencilAttachment(fb *rhi.Framebuffer, depth float32, stencil uint8) error
}

// Hooks are called when an encoder closes or the framebuffer changes, so a
// command list can drop caches that refer to the closed encoder.
type Hooks struct {
	RenderPassEnded    func()
	ComputeEnded       func()
	CopyEnded          func()
	FramebufferChanged func(fb *rhi.Framebuffer)
}

// Machine is the encoder state machine of one command list. It is owned
// by the recording goroutine.
type Machine struct {
	passes  Passes
	clearer AttachmentClearer
	hooks   Hooks

	// eager makes EnsureNoRenderPass materialize the queued clears of a
	// framebuffer that never had a pass, keeping them ordered before any
	// copy or dispatch that follows.
	eager bool

	mode       Mode
	fb         *rhi.Framebuffer
	everActive bool
	clears     Clears
}

// Option configures a Machine.
type Option func(*Machine)

// WithHooks installs cache reset hooks.
func WithHooks(h Hooks) Option {
	return func(m *Machine) { m.hooks = h }
}

// WithEagerClears makes every pass-ending transition flush queued clears,
// not just SetFramebuffer and End.
func WithEagerClears() Option {
	return func(m *Machine) { m.eager = true }
}

// New returns a machine driving p. If p implements AttachmentClearer,
// clears inside an open pass are issued through it.
func New(p Passes, opts ...Option) *Machine {
	m := &Machine{passes: p}
	m.clearer, _ = p.(AttachmentClearer)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the open encoder kind.
func (m *Machine) Mode() Mode { return m.mode }

// Framebuffer returns the bound framebuffer, or nil.
func (m *Machine) Framebuffer() *rhi.Framebuffer { return m.fb }

// Clears returns the clears queued for the next pass.
func (m *Machine) Clears() Clears { return m.clears }

// RenderPassActive reports whether a render pass is open.
func (m *Machine) RenderPassActive() bool { return m.mode == ModeRender }

// Reset forgets all state without calling into the backend. It is used at
// Begin, when the native command buffer starts empty.
func (m *Machine) Reset() {
	m.mode = ModeNone
	m.fb = nil
	m.everActive = false
	m.clears.reset(0)
}

// SetFramebuffer binds fb. A previous framebuffer that never had a pass
// gets one now, so its queued clears are not lost.
func (m *Machine) SetFramebuffer(fb *rhi.Framebuffer) error {
	if err := m.flushRenderPass(); err != nil {
		return err
	}
	m.fb = fb
	m.everActive = false
	n := 0
	if fb != nil {
		n = len(fb.ColorTargets())
	}
	m.clears.reset(n)
	if m.hooks.FramebufferChanged != nil {
		m.hooks.FramebufferChanged(fb)
	}
	return nil
}

// EnsureRenderPassActive opens a render pass on the bound framebuffer if
// none is open, closing compute and copy work first. It returns false
// without error when the framebuffer's drawable is unavailable; the
// caller skips the operation that needed the pass.
func (m *Machine) EnsureRenderPassActive() (bool, error) {
	if m.mode == ModeRender {
		return true, nil
	}
	if m.fb == nil {
		return false, rhi.ErrNoFramebuffer
	}
	if err := m.EnsureNoComputeEncoder(); err != nil {
		return false, err
	}
	if err := m.EnsureNoCopyEncoder(); err != nil {
		return false, err
	}
	return m.beginRenderPass()
}

func (m *Machine) beginRenderPass() (bool, error) {
	log := rhi.Logger()
	if d := m.fb.Drawable(); d != nil && !d.EnsureDrawableAvailable() {
		log.Debug("encoder: render pass skipped, no drawable available")
		return false, nil
	}

	first := !m.everActive
	queued := m.clears
	m.clears.reset(len(queued.Color))

	pb := PassBegin{Framebuffer: m.fb, First: first}
	inPass := m.clearer != nil && !queued.Complete(m.fb)
	if !inPass {
		pb.Clears = queued
	}
	if err := m.passes.BeginRenderPass(pb); err != nil {
		return false, fmt.Errorf("encoder: begin render pass: %w", err)
	}
	m.mode = ModeRender
	m.everActive = true
	log.Debug("encoder: render pass begun",
		"first", first, "load_clears", !inPass && queued.Any(), "in_pass_clears", inPass && queued.Any())

	if inPass {
		if queued.Depth.Set && m.fb.DepthTarget() != nil {
			if err := m.clearer.ClearDepthStencilAttachment(m.fb, queued.Depth.Depth, queued.Depth.Stencil); err != nil {
				return true, err
			}
		}
		for i, c := range queued.Color {
			if !c.Set {
				continue
			}
			if err := m.clearer.ClearColorAttachment(m.fb, uint32(i), c.Value); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

// EnsureNoRenderPass closes an open render pass and reports whether one
// was closed.
func (m *Machine) EnsureNoRenderPass() (bool, error) {
	if m.eager {
		return m.flushRenderPassEnded()
	}
	return m.endRenderPass()
}

func (m *Machine) endRenderPass() (bool, error) {
	if m.mode != ModeRender {
		return false, nil
	}
	m.mode = ModeNone
	if m.hooks.RenderPassEnded != nil {
		m.hooks.RenderPassEnded()
	}
	if err := m.passes.EndRenderPass(); err != nil {
		return true, fmt.Errorf("encoder: end render pass: %w", err)
	}
	rhi.Logger().Debug("encoder: render pass ended")
	return true, nil
}

// flushRenderPass ends an open pass, or begins and ends one when the bound
// framebuffer never had a pass.
func (m *Machine) flushRenderPass() error {
	_, err := m.flushRenderPassEnded()
	return err
}

func (m *Machine) flushRenderPassEnded() (bool, error) {
	if m.mode != ModeRender && m.fb != nil && !m.everActive {
		ok, err := m.EnsureRenderPassActive()
		if err != nil {
			return false, err
		}
		if !ok {
			// The pass was skipped; its clears go with it.
			m.everActive = true
			return false, nil
		}
	}
	return m.endRenderPass()
}

// EnsureComputeEncoder opens compute work, closing render and copy work.
func (m *Machine) EnsureComputeEncoder() error {
	if m.mode == ModeCompute {
		return nil
	}
	if err := m.closeOthers(ModeCompute); err != nil {
		return err
	}
	if err := m.passes.BeginCompute(); err != nil {
		return fmt.Errorf("encoder: begin compute: %w", err)
	}
	m.mode = ModeCompute
	return nil
}

// EnsureNoComputeEncoder closes open compute work.
func (m *Machine) EnsureNoComputeEncoder() error {
	if m.mode != ModeCompute {
		return nil
	}
	m.mode = ModeNone
	if m.hooks.ComputeEnded != nil {
		m.hooks.ComputeEnded()
	}
	if err := m.passes.EndCompute(); err != nil {
		return fmt.Errorf("encoder: end compute: %w", err)
	}
	return nil
}

// EnsureCopyEncoder opens copy work, closing render and compute work.
func (m *Machine) EnsureCopyEncoder() error {
	if m.mode == ModeCopy {
		return nil
	}
	if err := m.closeOthers(ModeCopy); err != nil {
		return err
	}
	if err := m.passes.BeginCopy(); err != nil {
		return fmt.Errorf("encoder: begin copy: %w", err)
	}
	m.mode = ModeCopy
	return nil
}

// EnsureNoCopyEncoder closes open copy work.
func (m *Machine) EnsureNoCopyEncoder() error {
	if m.mode != ModeCopy {
		return nil
	}
	m.mode = ModeNone
	if m.hooks.CopyEnded != nil {
		m.hooks.CopyEnded()
	}
	if err := m.passes.EndCopy(); err != nil {
		return fmt.Errorf("encoder: end copy: %w", err)
	}
	return nil
}

// EnsureNone closes whatever is open.
func (m *Machine) EnsureNone() error {
	if _, err := m.EnsureNoRenderPass(); err != nil {
		return err
	}
	if err := m.EnsureNoComputeEncoder(); err != nil {
		return err
	}
	return m.EnsureNoCopyEncoder()
}

func (m *Machine) closeOthers(keep Mode) error {
	if keep != ModeRender {
		if _, err := m.EnsureNoRenderPass(); err != nil {
			return err
		}
	}
	if keep != ModeCompute {
		if err := m.EnsureNoComputeEncoder(); err != nil {
			return err
		}
	}
	if keep != ModeCopy {
		return m.EnsureNoCopyEncoder()
	}
	return nil
}

// End closes every encoder. Clears queued for a framebuffer that never had
// a pass are applied first.
func (m *Machine) End() error {
	if err := m.EnsureNoComputeEncoder(); err != nil {
		return err
	}
	if err := m.EnsureNoCopyEncoder(); err != nil {
		return err
	}
	return m.flushRenderPass()
}

// ClearColor clears color attachment index of the bound framebuffer. In
// an open pass the clear is issued at once when the backend can clear
// inside a pass; otherwise the pass is closed and the clear is queued for
// the next one.
func (m *Machine) ClearColor(index uint32, c gputypes.Color) error {
	if m.fb == nil {
		return rhi.ErrNoFramebuffer
	}
	if int(index) >= len(m.fb.ColorTargets()) {
		return fmt.Errorf("clear color target %d of %d: %w", index, len(m.fb.ColorTargets()), rhi.ErrIndexOutOfRange)
	}
	if m.mode == ModeRender {
		if m.clearer != nil {
			return m.clearer.ClearColorAttachment(m.fb, index, c)
		}
		if _, err := m.endRenderPass(); err != nil {
			return err
		}
	}
	m.clears.Color[index] = ColorClear{Set: true, Value: c}
	return nil
}

// ClearDepthStencil clears the depth attachment of the bound framebuffer,
// following the same rules as ClearColor.
func (m *Machine) ClearDepthStencil(depth float32, stencil uint8) error {
	if m.fb == nil {
		return rhi.ErrNoFramebuffer
	}
	if m.fb.DepthTarget() == nil {
		return fmt.Errorf("clear depth: framebuffer has no depth target: %w", rhi.ErrIndexOutOfRange)
	}
	if m.mode == ModeRender {
		if m.clearer != nil {
			return m.clearer.ClearDepthStencilAttachment(m.fb, depth, stencil)
		}
		if _, err := m.endRenderPass(); err != nil {
			return err
		}
	}
	m.clears.Depth = DepthClear{Set: true, Depth: depth, Stencil: stencil}
	return nil
}
