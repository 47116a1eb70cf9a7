package rhi

import (
	"sync"
	"time"
)

// Fence is signalled when the submission it was passed with retires.
// Fence is safe for concurrent use.
type Fence struct {
	resource
	mu       sync.Mutex
	signaled bool
	done     chan struct{}
	waiters  int
}

// NewFence creates a fence, optionally already signalled.
func NewFence(signaled bool) *Fence {
	f := &Fence{resource: newResource(nil), done: make(chan struct{})}
	if signaled {
		f.signaled = true
		close(f.done)
	}
	return f
}

// Signal marks the fence signalled and wakes every waiter. Signalling a
// signalled fence has no effect.
func (f *Fence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signaled {
		f.signaled = true
		close(f.done)
	}
}

// Signaled reports whether the fence is signalled.
func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Reset returns the fence to the unsignalled state. It fails with
// ErrFenceInUse while a Wait is outstanding.
func (f *Fence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiters > 0 {
		return ErrFenceInUse
	}
	if f.signaled {
		f.signaled = false
		f.done = make(chan struct{})
	}
	return nil
}

// Wait blocks until the fence is signalled or timeout elapses, and reports
// whether it was signalled. A negative timeout waits forever; zero polls.
func (f *Fence) Wait(timeout time.Duration) bool {
	f.mu.Lock()
	if f.signaled {
		f.mu.Unlock()
		return true
	}
	if timeout == 0 {
		f.mu.Unlock()
		return false
	}
	f.waiters++
	done := f.done
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.waiters--
		f.mu.Unlock()
	}()

	if timeout < 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
