// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	"github.com/gogpu/rhi/internal/binding"
	"github.com/gogpu/rhi/internal/cmdbase"
	"github.com/gogpu/rhi/internal/encoder"
	"github.com/gogpu/rhi/internal/layout"
	"github.com/gogpu/rhi/internal/pool"
)

// CommandList records rhi commands into native command buffers with
// explicit image layout tracking.
//
// A CommandList is recorded from one goroutine. Complete may be called from
// the goroutine that observes GPU completion.
type CommandList struct {
	cmdbase.Base

	dev   rhi.Device
	alloc CommandBufferAllocator
	// ownHAL is the allocator the list created over a HAL device.
	ownHAL *HALAllocator
	refs   *rhi.RefCount
	cmds  *pool.Commands[CommandBuffer]
	enc   *encoder.Machine

	// cb is the command buffer of the recording in progress.
	cb CommandBuffer

	offsets      binding.OffsetPool
	graphicsSets *binding.Sets
	computeSets  *binding.Sets
	vertex       binding.VertexBuffers

	// fbRendered is set once a pass ran on the bound framebuffer, so its
	// attachments need their final layouts when it is unbound.
	fbRendered bool

	// dispatchStorage holds storage images moved to General by a
	// dispatch, to be moved back before the next render pass.
	dispatchStorage []*rhi.Texture

	debugDepth    int
	warnedNoDebug bool

	vbScratch  []*rhi.Buffer
	offScratch []uint64
	dynScratch []uint32
	setScratch []*rhi.ResourceSet
}

var _ rhi.CommandList = (*CommandList)(nil)

// NewCommandList creates a command list for dev. The command buffer
// allocator is taken from WithAllocator, from dev itself when it
// implements CommandBufferAllocator, or from the HAL device dev exposes.
func NewCommandList(dev rhi.Device, opts ...Option) (*CommandList, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	alloc, err := resolveAllocator(dev, o.alloc)
	if err != nil {
		return nil, err
	}

	cl := &CommandList{
		Base:  cmdbase.New(rhi.NewCommandListConfig(o.list...), dev.Features()),
		dev:   dev,
		alloc: alloc,
	}
	if h, ok := alloc.(*HALAllocator); ok && o.alloc == nil {
		cl.ownHAL = h
	}
	cl.refs = rhi.NewRefCount(cl.destroy)
	cl.cmds = pool.NewCommands(alloc.AllocateCommandBuffer, alloc.FreeCommandBuffer, dev, nil, cl.refs)
	cl.graphicsSets = binding.NewSets(&cl.offsets)
	cl.computeSets = binding.NewSets(&cl.offsets)
	cl.enc = encoder.New(passes{cl}, encoder.WithEagerClears(), encoder.WithHooks(encoder.Hooks{
		FramebufferChanged: func(*rhi.Framebuffer) { cl.fbRendered = false },
	}))
	return cl, nil
}

func resolveAllocator(dev rhi.Device, alloc CommandBufferAllocator) (CommandBufferAllocator, error) {
	if alloc != nil {
		return alloc, nil
	}
	if a, ok := dev.(CommandBufferAllocator); ok {
		return a, nil
	}
	if h, ok := dev.(halProvider); ok {
		return NewHALAllocator(h.HALDevice(), h.HALQueue())
	}
	return nil, fmt.Errorf("vulkan: %T has no command buffer allocator: %w", dev, backend.ErrUnsupportedDevice)
}

// RefCount returns the list's ownership token. Every in-flight submission
// holds a reference to it.
func (cl *CommandList) RefCount() *rhi.RefCount { return cl.refs }

// Begin starts a recording.
func (cl *CommandList) Begin() error {
	if err := cl.Base.Begin(); err != nil {
		return err
	}
	cb, reused, err := cl.cmds.Begin()
	if err != nil {
		return fmt.Errorf("vulkan: allocate command buffer: %w", rhi.CheckResult(err))
	}
	if reused {
		if err := cb.Reset(); err != nil {
			return fmt.Errorf("vulkan: reset command buffer: %w", rhi.CheckResult(err))
		}
	}
	if err := cb.Begin(); err != nil {
		return fmt.Errorf("vulkan: begin command buffer: %w", rhi.CheckResult(err))
	}
	cl.cb = cb
	cl.enc.Reset()
	cl.fbRendered = false
	cl.graphicsSets.Clear()
	cl.computeSets.Clear()
	cl.vertex.Clear()
	clear(cl.dispatchStorage)
	cl.dispatchStorage = cl.dispatchStorage[:0]
	cl.debugDepth = 0
	return nil
}

// End finishes the recording. Clears queued on a framebuffer that never
// had a pass are applied, and the attachments of the bound framebuffer
// move to their final layouts.
func (cl *CommandList) End() error {
	if err := cl.Check("end"); err != nil {
		return err
	}
	if err := cl.enc.End(); err != nil {
		return err
	}
	if fb := cl.enc.Framebuffer(); fb != nil && cl.fbRendered {
		cl.transitionToFinalLayout(fb)
	}
	for ; cl.debugDepth > 0; cl.debugDepth-- {
		cl.cb.EndDebugLabel()
	}
	if err := cl.cb.End(); err != nil {
		if !errors.Is(err, ErrUnsupported) && !errors.Is(err, rhi.ErrInvalidCopy) {
			err = rhi.CheckResult(err)
		}
		return fmt.Errorf("vulkan: end command buffer: %w", err)
	}
	return cl.Base.End()
}

// Submit detaches the recorded command buffer for submission. The list
// keeps every referenced resource alive until Complete is called with the
// returned buffer.
func (cl *CommandList) Submit() (CommandBuffer, error) {
	if cl.State() != cmdbase.StateEnded {
		return nil, fmt.Errorf("vulkan: submit: %w", rhi.ErrNotRecording)
	}
	return cl.cmds.Submitted()
}

// SubmitHAL is Submit for lists recording into HAL command buffers. The
// returned func completes the submission.
func (cl *CommandList) SubmitHAL() (hal.CommandBuffer, func(), error) {
	cb, err := cl.Submit()
	if err != nil {
		return nil, nil, err
	}
	h, ok := cb.(*HALCommandBuffer)
	if !ok {
		cl.Complete(cb)
		return nil, nil, fmt.Errorf("vulkan: submit HAL: %T is not a HAL command buffer: %w", cb, backend.ErrUnsupportedDevice)
	}
	return h.HAL(), func() { cl.Complete(cb) }, nil
}

// Complete retires a submission returned by Submit: staging buffers go
// back to the device pool and resource references are dropped.
func (cl *CommandList) Complete(cb CommandBuffer) {
	cl.cmds.Retire(cb)
}

// InFlight returns the number of submissions awaiting Complete.
func (cl *CommandList) InFlight() int { return cl.cmds.InFlight() }

// Dispose releases the list. Native command buffers are freed once every
// in-flight submission completes.
func (cl *CommandList) Dispose() {
	if cl.MarkDisposed() {
		cl.refs.DecrementDispose()
	}
}

func (cl *CommandList) destroy() {
	cl.graphicsSets.Clear()
	cl.computeSets.Clear()
	cl.cmds.Destroy()
	cl.cb = nil
	if cl.ownHAL != nil {
		cl.ownHAL.Destroy()
		cl.ownHAL = nil
	}
	rhi.Logger().Debug("vulkan: command list destroyed", "name", cl.Name())
}

// track records a reference to res for the recording in progress.
func (cl *CommandList) track(res rhi.Resource) {
	cl.cmds.Info().AddResource(res.RefCount())
}

// emit returns an emitter that records each barrier of t as its own
// pipeline barrier.
func (cl *CommandList) emit(t *rhi.Texture) layout.Emitter {
	return func(b layout.Barrier) {
		cl.cb.PipelineBarrier(b.SrcStage, b.DstStage, nil, []ImageBarrier{{Texture: t, Barrier: b}})
	}
}

func (cl *CommandList) transition(t *rhi.Texture, r layout.Range, l layout.Layout) {
	t.TransitionImageLayout(r, l, cl.emit(t))
}

func attachmentRange(a rhi.FramebufferAttachment) layout.Range {
	return layout.Range{BaseMip: a.MipLevel, MipCount: 1, BaseLayer: a.ArrayLayer, LayerCount: 1}
}

// transitionToFinalLayout moves attachments that will be sampled to
// ShaderReadOnly and swapchain color targets to PresentSrc.
func (cl *CommandList) transitionToFinalLayout(fb *rhi.Framebuffer) {
	for _, a := range fb.ColorTargets() {
		switch {
		case a.Target.Usage().Has(rhi.TextureUsageSampled):
			cl.transition(a.Target, attachmentRange(a), layout.ShaderReadOnly)
		case fb.Drawable() != nil:
			cl.transition(a.Target, attachmentRange(a), layout.PresentSrc)
		}
	}
	if d := fb.DepthTarget(); d != nil && d.Target.Usage().Has(rhi.TextureUsageSampled) {
		cl.transition(d.Target, attachmentRange(*d), layout.ShaderReadOnly)
	}
}
