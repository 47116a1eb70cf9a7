package rhi

// Resource is implemented by every object a command list can reference
// while a submission is in flight.
type Resource interface {
	// Name returns the debug name.
	Name() string

	// SetName sets the debug name. Devices may forward it to the native
	// object on a best-effort basis.
	SetName(name string)

	// RefCount returns the ownership token tracked by in-flight recordings.
	RefCount() *RefCount

	// Dispose releases the owner's reference. The native object is
	// destroyed once every in-flight recording that referenced it retires.
	Dispose()
}

// resource holds the name and ownership token shared by all resource types.
// Names are not synchronized: set them from the goroutine that owns the
// resource.
type resource struct {
	name string
	refs *RefCount
}

func newResource(release func()) resource {
	return resource{refs: NewRefCount(release)}
}

// Name returns the debug name.
func (r *resource) Name() string { return r.name }

// SetName sets the debug name.
func (r *resource) SetName(name string) { r.name = name }

// RefCount returns the ownership token.
func (r *resource) RefCount() *RefCount { return r.refs }

// Dispose releases the owner's reference. Repeated calls have no effect.
func (r *resource) Dispose() { r.refs.DecrementDispose() }

// Disposed reports whether Dispose was called.
func (r *resource) Disposed() bool { return r.refs.Disposed() }
