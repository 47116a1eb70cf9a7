// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"fmt"
	"sync"

	"github.com/gogpu/rhi"
)

// Commands manages the native command buffers of one command list and the
// bundle of the recording in progress.
//
// Recording methods (Begin, Current, Info, Submitted) are called from the
// recording goroutine. Completed and Recycle may be called from any
// goroutine; one mutex guards the buffer stack and the submitted table.
type Commands[CB comparable] struct {
	alloc   func() (CB, error)
	destroy func(CB)
	dev     Returner
	free    *FreeList
	owner   *rhi.RefCount

	// Owned by the recording goroutine.
	current    CB
	hasCurrent bool
	info       *StagingInfo

	mu        sync.Mutex
	available []CB
	submitted map[CB]*StagingInfo
}

// NewCommands creates a pool. alloc creates a native command buffer and
// destroy frees one; owner is the command list's own token, held once per
// in-flight submission.
func NewCommands[CB comparable](alloc func() (CB, error), destroy func(CB), dev Returner, free *FreeList, owner *rhi.RefCount) *Commands[CB] {
	if free == nil {
		free = &FreeList{}
	}
	return &Commands[CB]{
		alloc:     alloc,
		destroy:   destroy,
		dev:       dev,
		free:      free,
		owner:     owner,
		submitted: make(map[CB]*StagingInfo),
	}
}

// Begin returns the command buffer for a new recording. reused reports
// that cb carries an earlier recording, unsubmitted or completed, and must
// be reset before use. A bundle left by an unsubmitted recording is
// recycled.
func (p *Commands[CB]) Begin() (cb CB, reused bool, err error) {
	if p.info != nil {
		Recycle(p.info, p.dev, p.free)
		p.info = nil
	}
	if p.hasCurrent {
		reused = true
	} else {
		p.current, reused, err = p.next()
		if err != nil {
			var zero CB
			return zero, false, err
		}
		p.hasCurrent = true
	}
	p.info = p.free.Get()
	return p.current, reused, nil
}

// next pops a completed command buffer, or allocates one when none is
// idle. recycled reports the former.
func (p *Commands[CB]) next() (cb CB, recycled bool, err error) {
	p.mu.Lock()
	if n := len(p.available); n > 0 {
		cb = p.available[n-1]
		p.available = p.available[:n-1]
		p.mu.Unlock()
		rhi.Logger().Debug("pool: reusing command buffer", "available", n-1)
		return cb, true, nil
	}
	p.mu.Unlock()
	cb, err = p.alloc()
	return cb, false, err
}

// Current returns the command buffer of the recording in progress.
func (p *Commands[CB]) Current() (CB, bool) { return p.current, p.hasCurrent }

// Info returns the bundle of the recording in progress, or nil.
func (p *Commands[CB]) Info() *StagingInfo { return p.info }

// Submitted detaches the current command buffer and bundle and records
// them as in flight. The owner token gains one reference until Completed.
func (p *Commands[CB]) Submitted() (CB, error) {
	if !p.hasCurrent || p.info == nil {
		var zero CB
		return zero, fmt.Errorf("pool: submit without a recording: %w", rhi.ErrNotRecording)
	}
	if p.owner != nil {
		p.owner.Increment()
	}
	cb := p.current
	p.mu.Lock()
	p.submitted[cb] = p.info
	p.mu.Unlock()

	var zero CB
	p.current, p.hasCurrent, p.info = zero, false, nil
	return cb, nil
}

// Completed moves cb back to the available stack and returns the bundle of
// its submission. It panics when cb is not in flight.
func (p *Commands[CB]) Completed(cb CB) *StagingInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.submitted[cb]
	if !ok {
		panic(fmt.Sprintf("pool: completion for untracked command buffer %v", cb))
	}
	delete(p.submitted, cb)
	p.available = append(p.available, cb)
	return info
}

// Retire completes cb, recycles its bundle and drops the owner reference
// taken by Submitted.
func (p *Commands[CB]) Retire(cb CB) {
	info := p.Completed(cb)
	Recycle(info, p.dev, p.free)
	if p.owner != nil {
		p.owner.Decrement()
	}
}

// InFlight returns the number of submissions awaiting completion.
func (p *Commands[CB]) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submitted)
}

// Available returns the number of idle command buffers.
func (p *Commands[CB]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// Destroy frees every idle command buffer, the current one included, and
// recycles an unsubmitted bundle. In-flight buffers are untouched.
func (p *Commands[CB]) Destroy() {
	if p.info != nil {
		Recycle(p.info, p.dev, p.free)
		p.info = nil
	}
	p.mu.Lock()
	idle := p.available
	p.available = nil
	p.mu.Unlock()

	if p.hasCurrent {
		idle = append(idle, p.current)
		var zero CB
		p.current, p.hasCurrent = zero, false
	}
	if p.destroy != nil {
		for _, cb := range idle {
			p.destroy(cb)
		}
	}
}
