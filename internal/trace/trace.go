// Package trace records native calls issued by a backend, in order, so
// tests can assert on what a command list emitted without a GPU.
//
// Fake native command buffers and encoders call Record for every method
// they implement. A Recorder is then inspected with Count, Ops or Calls:
//
//	rec := trace.New()
//	cb := newFakeCommandBuffer(rec)
//	// ... record through a command list ...
//	if n := rec.Count("BeginRenderPass"); n != 1 {
//	    t.Errorf("passes = %d, want 1", n)
//	}
package trace

import (
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded native call.
type Call struct {
	Op   string
	Args []any
}

// String formats the call as Op(arg, arg, ...).
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op + "()"
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}
	return c.Op + "(" + strings.Join(args, ", ") + ")"
}

// Arg returns the i-th argument, or nil.
func (c Call) Arg(i int) any {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return nil
}

// Recorder collects calls. It is safe for concurrent use because
// completion callbacks may record from another goroutine.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{calls: make([]Call, 0, 64)}
}

// Record appends a call.
func (r *Recorder) Record(op string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	r.mu.Unlock()
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the op names of every recorded call, in order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.calls))
	for i, c := range r.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many calls have the given op.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Find returns the calls with the given op.
func (r *Recorder) Find(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of the first call with op, or -1.
func (r *Recorder) Index(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c.Op == op {
			return i
		}
	}
	return -1
}

// Mark returns the current call count, for use with Since.
func (r *Recorder) Mark() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Since returns the ops recorded after mark.
func (r *Recorder) Since(mark int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mark > len(r.calls) {
		return nil
	}
	ops := make([]string, 0, len(r.calls)-mark)
	for _, c := range r.calls[mark:] {
		ops = append(ops, c.Op)
	}
	return ops
}

// Reset drops every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = r.calls[:0]
	r.mu.Unlock()
}

// String lists the calls one per line.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, c := range r.calls {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
