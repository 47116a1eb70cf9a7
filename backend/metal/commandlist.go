// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package metal

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	"github.com/gogpu/rhi/internal/binding"
	"github.com/gogpu/rhi/internal/cmdbase"
	"github.com/gogpu/rhi/internal/encoder"
	"github.com/gogpu/rhi/internal/pool"
)

// Submission is one recording handed to the device. Its command buffer is
// released when the submission completes.
type Submission struct {
	cb CommandBuffer
}

// CommandBuffer returns the native command buffer to commit.
func (s *Submission) CommandBuffer() CommandBuffer { return s.cb }

func (s *Submission) release() {
	if s.cb != nil {
		s.cb.Release()
		s.cb = nil
	}
}

// CommandList records rhi commands into Metal-style command buffers where
// only one render, compute or blit encoder is open at a time.
//
// A CommandList is recorded from one goroutine. Complete may be called from
// the goroutine that observes GPU completion.
type CommandList struct {
	cmdbase.Base

	dev  Device
	refs *rhi.RefCount
	cmds *pool.Commands[*Submission]
	enc  *encoder.Machine

	// sub is the submission being recorded.
	sub *Submission

	render  RenderCommandEncoder
	compute ComputeCommandEncoder
	blit    BlitCommandEncoder

	cache        *binding.Cache
	offsets      binding.OffsetPool
	graphicsSets *binding.Sets
	computeSets  *binding.Sets
	vertex       binding.VertexBuffers

	// lastGraphics and lastCompute are the pipelines applied to the open
	// render and compute encoders.
	lastGraphics *rhi.Pipeline
	lastCompute  *rhi.Pipeline

	indexBuf    *rhi.Buffer
	indexFormat gputypes.IndexFormat
	indexOffset uint64

	copyKernel    ComputePipelineState
	ownCopyKernel bool
}

var _ rhi.CommandList = (*CommandList)(nil)

// NewCommandList creates a command list for dev, which must implement
// Device.
func NewCommandList(dev rhi.Device, opts ...Option) (*CommandList, error) {
	md, ok := dev.(Device)
	if !ok {
		return nil, fmt.Errorf("metal: %T cannot create command buffers: %w", dev, backend.ErrUnsupportedDevice)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cl := &CommandList{
		Base:       cmdbase.New(rhi.NewCommandListConfig(o.list...), dev.Features()),
		dev:        md,
		cache:      binding.NewCache(),
		copyKernel: o.copyKernel,
	}
	cl.refs = rhi.NewRefCount(cl.destroy)
	cl.cmds = pool.NewCommands(
		func() (*Submission, error) { return &Submission{}, nil },
		(*Submission).release,
		dev, nil, cl.refs)
	cl.graphicsSets = binding.NewSets(&cl.offsets)
	cl.computeSets = binding.NewSets(&cl.offsets)
	cl.enc = encoder.New(passes{cl}, encoder.WithHooks(encoder.Hooks{
		RenderPassEnded: cl.renderEnded,
		ComputeEnded:    cl.computeEnded,
	}))
	return cl, nil
}

// RefCount returns the list's ownership token. Every in-flight submission
// holds a reference to it.
func (cl *CommandList) RefCount() *rhi.RefCount { return cl.refs }

// Begin starts a recording in a new native command buffer. The buffer of
// an earlier recording that was never submitted is released.
func (cl *CommandList) Begin() error {
	if err := cl.Base.Begin(); err != nil {
		return err
	}
	sub, _, err := cl.cmds.Begin()
	if err != nil {
		return err
	}
	sub.release()
	sub.cb, err = cl.dev.NewCommandBuffer()
	if err != nil {
		return fmt.Errorf("metal: new command buffer: %w", rhi.CheckResult(err))
	}
	cl.sub = sub
	cl.render, cl.compute, cl.blit = nil, nil, nil
	cl.enc.Reset()
	cl.cache.Reset(binding.StageVertex, binding.StageFragment, binding.StageCompute)
	cl.graphicsSets.Clear()
	cl.computeSets.Clear()
	cl.vertex.Clear()
	cl.lastGraphics, cl.lastCompute = nil, nil
	cl.indexBuf = nil
	return nil
}

// End closes every open encoder. Clears queued on a framebuffer that
// never had a pass get one now.
func (cl *CommandList) End() error {
	if err := cl.Check("end"); err != nil {
		return err
	}
	if err := cl.enc.End(); err != nil {
		return err
	}
	return cl.Base.End()
}

// Submit detaches the recording for commit. Complete must be called with
// the returned submission once the GPU finishes it.
func (cl *CommandList) Submit() (*Submission, error) {
	if cl.State() != cmdbase.StateEnded {
		return nil, fmt.Errorf("metal: submit: %w", rhi.ErrNotRecording)
	}
	sub, err := cl.cmds.Submitted()
	if err != nil {
		return nil, err
	}
	cl.sub = nil
	return sub, nil
}

// Commit submits the recording and commits its command buffer. The
// submission completes, and fence is signalled, from the buffer's
// completed handler.
func (cl *CommandList) Commit(fence *rhi.Fence) error {
	sub, err := cl.Submit()
	if err != nil {
		return err
	}
	sub.cb.AddCompletedHandler(func() {
		cl.Complete(sub)
		if fence != nil {
			fence.Signal()
		}
	})
	if err := sub.cb.Commit(); err != nil {
		cl.Complete(sub)
		return fmt.Errorf("metal: commit: %w", rhi.CheckResult(err))
	}
	return nil
}

// Complete retires a submission: its command buffer is released, staging
// buffers go back to the device pool and resource references are dropped.
func (cl *CommandList) Complete(sub *Submission) {
	sub.release()
	cl.cmds.Retire(sub)
}

// InFlight returns the number of submissions awaiting Complete.
func (cl *CommandList) InFlight() int { return cl.cmds.InFlight() }

// Dispose releases the list once every in-flight submission completes.
func (cl *CommandList) Dispose() {
	if cl.MarkDisposed() {
		cl.refs.DecrementDispose()
	}
}

func (cl *CommandList) destroy() {
	cl.graphicsSets.Clear()
	cl.computeSets.Clear()
	cl.cmds.Destroy()
	cl.sub = nil
	if cl.ownCopyKernel && cl.copyKernel != nil {
		cl.copyKernel.Release()
		cl.copyKernel = nil
	}
	rhi.Logger().Debug("metal: command list destroyed", "name", cl.Name())
}

func (cl *CommandList) track(res rhi.Resource) {
	cl.cmds.Info().AddResource(res.RefCount())
}

// renderEnded forgets everything bound to the closed render encoder.
func (cl *CommandList) renderEnded() {
	cl.cache.Reset(binding.StageVertex, binding.StageFragment)
	cl.lastGraphics = nil
	cl.graphicsSets.Invalidate()
	cl.vertex.Invalidate()
	cl.MarkViewportsDirty()
}

// computeEnded forgets everything bound to the closed compute encoder.
func (cl *CommandList) computeEnded() {
	cl.cache.Reset(binding.StageCompute)
	cl.lastCompute = nil
	cl.computeSets.Invalidate()
}
