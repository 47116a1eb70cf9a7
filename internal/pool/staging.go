package pool

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/gogpu/rhi"
)

// minStagingSize is the smallest size class. Requests below it share one
// bucket.
const minStagingSize = 256

// SizeClass returns the capacity of the staging buffers serving a request
// of n bytes: the next power of two, at least minStagingSize.
func SizeClass(n uint64) uint64 {
	if n <= minStagingSize {
		return minStagingSize
	}
	return 1 << bits.Len64(n-1)
}

// StagingBuffers is a device-level pool of staging buffers grouped by size
// class. A buffer is handed to at most one holder at a time.
//
// StagingBuffers is safe for concurrent use.
type StagingBuffers struct {
	create func(size uint64) (*rhi.Buffer, error)
	limit  int

	mu      sync.Mutex
	buckets map[uint64][]*rhi.Buffer
	out     map[*rhi.Buffer]struct{}
}

// NewStagingBuffers creates a pool. create allocates a staging buffer of
// exactly size bytes. limit caps the idle buffers kept per size class;
// zero means unlimited. Buffers beyond the cap are disposed.
func NewStagingBuffers(create func(size uint64) (*rhi.Buffer, error), limit int) *StagingBuffers {
	return &StagingBuffers{
		create:  create,
		limit:   limit,
		buckets: make(map[uint64][]*rhi.Buffer),
		out:     make(map[*rhi.Buffer]struct{}),
	}
}

// Get returns an idle buffer of at least minSize bytes, creating one when
// the size class has none.
func (p *StagingBuffers) Get(minSize uint64) (*rhi.Buffer, error) {
	class := SizeClass(minSize)

	p.mu.Lock()
	if bucket := p.buckets[class]; len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		bucket[len(bucket)-1] = nil
		p.buckets[class] = bucket[:len(bucket)-1]
		p.out[buf] = struct{}{}
		p.mu.Unlock()
		rhi.Logger().Debug("pool: reusing staging buffer", "size", class, "request", minSize)
		return buf, nil
	}
	p.mu.Unlock()

	buf, err := p.create(class)
	if err != nil {
		return nil, fmt.Errorf("pool: create staging buffer of %d bytes: %w", class, err)
	}
	p.mu.Lock()
	p.out[buf] = struct{}{}
	p.mu.Unlock()
	return buf, nil
}

// Put returns buffers to the pool. It panics if a buffer is not currently
// handed out, which means it was returned twice.
func (p *StagingBuffers) Put(bufs ...*rhi.Buffer) {
	var discard []*rhi.Buffer

	p.mu.Lock()
	for _, buf := range bufs {
		if _, ok := p.out[buf]; !ok {
			p.mu.Unlock()
			panic("pool: staging buffer returned while not handed out")
		}
		delete(p.out, buf)
		class := SizeClass(buf.Size())
		if p.limit > 0 && len(p.buckets[class]) >= p.limit {
			discard = append(discard, buf)
			continue
		}
		p.buckets[class] = append(p.buckets[class], buf)
	}
	p.mu.Unlock()

	for _, buf := range discard {
		buf.Dispose()
	}
}

// Outstanding returns the number of buffers currently handed out.
func (p *StagingBuffers) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.out)
}

// Idle returns the number of pooled buffers.
func (p *StagingBuffers) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// Close disposes every idle buffer. Buffers still handed out are disposed
// by their holders.
func (p *StagingBuffers) Close() {
	p.mu.Lock()
	buckets := p.buckets
	p.buckets = make(map[uint64][]*rhi.Buffer)
	p.mu.Unlock()
	for _, bucket := range buckets {
		for _, buf := range bucket {
			buf.Dispose()
		}
	}
}

// StagingTextures is a device-level pool of staging textures keyed by
// their exact shape.
//
// StagingTextures is safe for concurrent use.
type StagingTextures struct {
	create func(desc rhi.TextureDescriptor) (*rhi.Texture, error)
	limit  int

	mu      sync.Mutex
	buckets map[rhi.TextureDescriptor][]*rhi.Texture
}

// NewStagingTextures creates a pool; see NewStagingBuffers for limit.
func NewStagingTextures(create func(desc rhi.TextureDescriptor) (*rhi.Texture, error), limit int) *StagingTextures {
	return &StagingTextures{
		create:  create,
		limit:   limit,
		buckets: make(map[rhi.TextureDescriptor][]*rhi.Texture),
	}
}

// Get returns an idle staging texture with the shape of desc.
func (p *StagingTextures) Get(desc rhi.TextureDescriptor) (*rhi.Texture, error) {
	desc = desc.Normalized()
	desc.Usage |= rhi.TextureUsageStaging
	p.mu.Lock()
	if bucket := p.buckets[desc]; len(bucket) > 0 {
		tex := bucket[len(bucket)-1]
		p.buckets[desc] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		return tex, nil
	}
	p.mu.Unlock()
	return p.create(desc)
}

// Put returns textures to the pool.
func (p *StagingTextures) Put(texs ...*rhi.Texture) {
	var discard []*rhi.Texture
	p.mu.Lock()
	for _, tex := range texs {
		key := tex.Descriptor()
		if p.limit > 0 && len(p.buckets[key]) >= p.limit {
			discard = append(discard, tex)
			continue
		}
		p.buckets[key] = append(p.buckets[key], tex)
	}
	p.mu.Unlock()
	for _, tex := range discard {
		tex.Dispose()
	}
}

// Close disposes every idle texture.
func (p *StagingTextures) Close() {
	p.mu.Lock()
	buckets := p.buckets
	p.buckets = make(map[rhi.TextureDescriptor][]*rhi.Texture)
	p.mu.Unlock()
	for _, bucket := range buckets {
		for _, tex := range bucket {
			tex.Dispose()
		}
	}
}
