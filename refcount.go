package rhi

import (
	"fmt"
	"sync/atomic"
)

// RefCount is the ownership token carried by every resource that a command
// list can reference while in flight. The owner holds the initial reference;
// each recording that touches the resource holds one more until the GPU
// retires the submission.
//
// When the count reaches zero the release function runs exactly once.
// RefCount is safe for concurrent use.
type RefCount struct {
	count    atomic.Int32
	disposed atomic.Bool
	release  func()
}

// NewRefCount returns a token holding one reference. release may be nil.
func NewRefCount(release func()) *RefCount {
	r := &RefCount{release: release}
	r.count.Store(1)
	return r
}

// Increment adds a reference and returns the new count.
// It panics if the count already reached zero: the resource is gone and a
// recording must never resurrect it.
func (r *RefCount) Increment() int32 {
	for {
		n := r.count.Load()
		if n <= 0 {
			panic(fmt.Sprintf("rhi: increment of released resource (count %d)", n))
		}
		if r.count.CompareAndSwap(n, n+1) {
			return n + 1
		}
	}
}

// Decrement drops a reference and returns the new count. The release function
// runs when the count reaches zero.
func (r *RefCount) Decrement() int32 {
	n := r.count.Add(-1)
	switch {
	case n == 0:
		if r.release != nil {
			r.release()
		}
	case n < 0:
		panic("rhi: reference count dropped below zero")
	}
	return n
}

// DecrementDispose drops the owner's reference. Only the first call has an
// effect, so Dispose methods built on it are idempotent.
func (r *RefCount) DecrementDispose() {
	if r.disposed.CompareAndSwap(false, true) {
		r.Decrement()
	}
}

// Count returns the current number of references.
func (r *RefCount) Count() int32 {
	return r.count.Load()
}

// Disposed reports whether the owner released its reference.
func (r *RefCount) Disposed() bool {
	return r.disposed.Load()
}
