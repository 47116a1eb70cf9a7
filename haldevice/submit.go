package haldevice

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

// pollInterval bounds each fence wait between queue polls.
const pollInterval = time.Millisecond

// Submitter is implemented by command lists that record into HAL command
// buffers. complete retires the submission and must run exactly once.
type Submitter interface {
	SubmitHAL() (cb hal.CommandBuffer, complete func(), err error)
}

type submission struct {
	index    uint64
	complete func()
	fence    *rhi.Fence
}

// SubmitCommands submits cl to the queue. fence, when not nil, is
// signalled once the queue reports the submission complete.
func (d *Device) SubmitCommands(cl rhi.CommandList, fence *rhi.Fence) error {
	s, ok := cl.(Submitter)
	if !ok {
		return fmt.Errorf("haldevice: %T does not record HAL command buffers: %w", cl, backend.ErrUnsupportedDevice)
	}
	cb, complete, err := s.SubmitHAL()
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		complete()
		return fmt.Errorf("haldevice: submit after close: %w", rhi.ErrDisposed)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		d.mu.Unlock()
		complete()
		return rhi.CheckResult(err)
	}
	d.pending = append(d.pending, submission{index: index, complete: complete, fence: fence})
	d.mu.Unlock()
	rhi.Logger().Debug("haldevice: submitted", "list", cl.Name(), "index", index)
	return nil
}

// Poll retires the submissions the queue reports complete and returns
// how many remain in flight.
func (d *Device) Poll() int {
	return d.retire(d.queue.PollCompleted())
}

func (d *Device) retire(completed uint64) int {
	d.mu.Lock()
	var done []submission
	keep := d.pending[:0]
	for _, s := range d.pending {
		if s.index <= completed {
			done = append(done, s)
			continue
		}
		keep = append(keep, s)
	}
	clear(d.pending[len(keep):])
	d.pending = keep
	remaining := len(keep)
	d.mu.Unlock()

	// Completion callbacks may return staging buffers to the pools, so they
	// run without the lock held.
	for _, s := range done {
		s.complete()
		if s.fence != nil {
			s.fence.Signal()
		}
	}
	return remaining
}

// WaitForFence polls the queue until f is signalled or timeout elapses.
// A negative timeout waits indefinitely.
func (d *Device) WaitForFence(f *rhi.Fence, timeout time.Duration) bool {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		d.Poll()
		if f.Signaled() {
			return true
		}
		wait := pollInterval
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return false
			}
			wait = min(wait, left)
		}
		if f.Wait(wait) {
			return true
		}
	}
}

// WaitIdle blocks until the device is idle and retires every submission.
func (d *Device) WaitIdle() error {
	if err := d.dev.WaitIdle(); err != nil {
		return rhi.CheckResult(err)
	}
	d.Poll()
	return nil
}

// InFlight returns the number of submissions not yet retired.
func (d *Device) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
