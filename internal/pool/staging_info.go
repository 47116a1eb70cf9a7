package pool

import (
	"sync"

	"github.com/gogpu/rhi"
)

// StagingInfo is the manifest of one recording: the staging objects it
// borrowed and the resources it referenced.
type StagingInfo struct {
	BuffersUsed  []*rhi.Buffer
	TexturesUsed []*rhi.Texture
	resources    map[*rhi.RefCount]struct{}
}

// NewStagingInfo returns an empty bundle.
func NewStagingInfo() *StagingInfo {
	return &StagingInfo{resources: make(map[*rhi.RefCount]struct{})}
}

// AddResource records a reference to rc, incrementing it the first time rc
// is added. It reports whether rc was new.
func (s *StagingInfo) AddResource(rc *rhi.RefCount) bool {
	if rc == nil {
		return false
	}
	if _, ok := s.resources[rc]; ok {
		return false
	}
	rc.Increment()
	s.resources[rc] = struct{}{}
	return true
}

// AddResources records every token in rcs.
func (s *StagingInfo) AddResources(rcs []*rhi.RefCount) {
	for _, rc := range rcs {
		s.AddResource(rc)
	}
}

// Holds reports whether rc is tracked.
func (s *StagingInfo) Holds(rc *rhi.RefCount) bool {
	_, ok := s.resources[rc]
	return ok
}

// ResourceCount returns the number of tracked resources.
func (s *StagingInfo) ResourceCount() int { return len(s.resources) }

// AddStagingBuffer records a pooled staging buffer borrowed by the recording.
func (s *StagingInfo) AddStagingBuffer(b *rhi.Buffer) {
	s.BuffersUsed = append(s.BuffersUsed, b)
}

// AddStagingTexture records a pooled staging texture borrowed by the recording.
func (s *StagingInfo) AddStagingTexture(t *rhi.Texture) {
	s.TexturesUsed = append(s.TexturesUsed, t)
}

// release drops every tracked reference and empties the bundle.
func (s *StagingInfo) release() {
	for rc := range s.resources {
		rc.Decrement()
	}
	clear(s.resources)
	clear(s.BuffersUsed)
	clear(s.TexturesUsed)
	s.BuffersUsed = s.BuffersUsed[:0]
	s.TexturesUsed = s.TexturesUsed[:0]
}

// FreeList is a concurrent free-list of empty bundles.
type FreeList struct {
	mu    sync.Mutex
	items []*StagingInfo
}

// Get pops an empty bundle, allocating one when the list is empty.
func (f *FreeList) Get() *StagingInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.items); n > 0 {
		s := f.items[n-1]
		f.items[n-1] = nil
		f.items = f.items[:n-1]
		return s
	}
	return NewStagingInfo()
}

// Put pushes an empty bundle.
func (f *FreeList) Put(s *StagingInfo) {
	f.mu.Lock()
	f.items = append(f.items, s)
	f.mu.Unlock()
}

// Len returns the number of bundles on the list.
func (f *FreeList) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Returner takes staging objects back into a device-level pool.
type Returner interface {
	ReturnPooledStagingBuffers(bufs []*rhi.Buffer)
	ReturnPooledStagingTextures(texs []*rhi.Texture)
}

// Recycle returns the bundle's staging objects to dev, drops every tracked
// reference and pushes the emptied bundle onto free. Dropping a reference
// may destroy a resource whose owner already disposed it.
func Recycle(s *StagingInfo, dev Returner, free *FreeList) {
	if len(s.BuffersUsed) > 0 {
		dev.ReturnPooledStagingBuffers(s.BuffersUsed)
	}
	if len(s.TexturesUsed) > 0 {
		dev.ReturnPooledStagingTextures(s.TexturesUsed)
	}
	s.release()
	free.Put(s)
}
