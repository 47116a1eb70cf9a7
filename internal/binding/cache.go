package binding

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// Stage is a native binding point with its own index tables.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute

	numStages
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// StagesOf returns the binding points an element visible to stages is
// bound at. Compute pipelines bind at the compute point only.
func StagesOf(stages gputypes.ShaderStages, compute bool) []Stage {
	if compute {
		if stages&gputypes.ShaderStageCompute != 0 {
			return []Stage{StageCompute}
		}
		return nil
	}
	var out []Stage
	if stages&gputypes.ShaderStageVertex != 0 {
		out = append(out, StageVertex)
	}
	if stages&gputypes.ShaderStageFragment != 0 {
		out = append(out, StageFragment)
	}
	return out
}

// Action is the native call a buffer bind needs.
type Action uint8

const (
	// ActionNone means the binding is already current.
	ActionNone Action = iota
	// ActionOffset means only the offset changed.
	ActionOffset
	// ActionBind means the buffer itself changed.
	ActionBind
)

type boundBuffer struct {
	buf    *rhi.Buffer
	offset uint64
}

// stageCache holds what is bound at one binding point, keyed by native index.
type stageCache struct {
	buffers  map[uint32]boundBuffer
	textures map[uint32]*rhi.TextureView
	samplers map[uint32]*rhi.Sampler
}

func (c *stageCache) init() {
	c.buffers = make(map[uint32]boundBuffer)
	c.textures = make(map[uint32]*rhi.TextureView)
	c.samplers = make(map[uint32]*rhi.Sampler)
}

// Cache remembers the buffer, texture and sampler bound at every
// (stage, index) of an encoder-style backend. It is owned by the recording
// goroutine.
type Cache struct {
	stages [numStages]stageCache
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.stages {
		c.stages[i].init()
	}
	return c
}

// BindBuffer records buf at offset for (stage, index) and returns the call
// needed to make it current.
func (c *Cache) BindBuffer(stage Stage, index uint32, buf *rhi.Buffer, offset uint64) Action {
	m := c.stages[stage].buffers
	cur, ok := m[index]
	switch {
	case !ok || cur.buf != buf:
		m[index] = boundBuffer{buf, offset}
		return ActionBind
	case cur.offset != offset:
		m[index] = boundBuffer{buf, offset}
		return ActionOffset
	}
	return ActionNone
}

// BindTexture records v for (stage, index) and reports whether it changed.
func (c *Cache) BindTexture(stage Stage, index uint32, v *rhi.TextureView) bool {
	m := c.stages[stage].textures
	if m[index] == v {
		return false
	}
	m[index] = v
	return true
}

// BindSampler records s for (stage, index) and reports whether it changed.
func (c *Cache) BindSampler(stage Stage, index uint32, s *rhi.Sampler) bool {
	m := c.stages[stage].samplers
	if m[index] == s {
		return false
	}
	m[index] = s
	return true
}

// Reset forgets everything bound at the given stages. A closed encoder
// loses its bindings, so the stages it served are reset when it ends.
func (c *Cache) Reset(stages ...Stage) {
	for _, s := range stages {
		sc := &c.stages[s]
		clear(sc.buffers)
		clear(sc.textures)
		clear(sc.samplers)
	}
}

// Binder issues the native calls for one resource set activation.
type Binder interface {
	BindBuffer(stage Stage, index uint32, r rhi.BufferRange, offsetOnly bool)
	BindTexture(stage Stage, index uint32, v *rhi.TextureView)
	BindSampler(stage Stage, index uint32, s *rhi.Sampler)
}

// Target describes the pipeline a set is activated for.
type Target struct {
	Layouts           []*rhi.ResourceLayout
	Compute           bool
	Model             rhi.BindingModel
	VertexBufferCount uint32
}

// TargetOf returns the activation target of p under model, which must
// already be resolved from BindingModelDefault.
func TargetOf(p *rhi.Pipeline, model rhi.BindingModel) Target {
	return Target{
		Layouts:           p.ResourceLayouts(),
		Compute:           p.IsCompute(),
		Model:             model,
		VertexBufferCount: p.VertexBufferCount(),
	}
}

// Activate binds every element of rec, bound at set index set, through b.
// Dynamic offsets are consumed in order by dynamic elements only and are
// added to the offset of the bound range. Calls for bindings the cache
// already holds are skipped.
func (c *Cache) Activate(t Target, set int, rec Record, b Binder) {
	layout := rec.Set.Layout()
	bufBase := GetBase(t.Layouts, set, SpaceBuffer)
	texBase := GetBase(t.Layouts, set, SpaceTexture)
	smpBase := GetBase(t.Layouts, set, SpaceSampler)

	dyn := 0
	for i, e := range layout.Elements() {
		slot := layout.Binding(i).Slot
		res := rec.Set.Resource(i)
		switch {
		case e.Kind.IsBuffer():
			r := res.(rhi.BufferRange)
			if e.Dynamic {
				if dyn < len(rec.Offsets) {
					r.Offset += uint64(rec.Offsets[dyn])
				}
				dyn++
			}
			for _, st := range StagesOf(e.Stages, t.Compute) {
				idx := BufferIndex(t.Model, st, t.VertexBufferCount, bufBase, slot)
				switch c.BindBuffer(st, idx, r.Buffer, r.Offset) {
				case ActionBind:
					b.BindBuffer(st, idx, r, false)
				case ActionOffset:
					b.BindBuffer(st, idx, r, true)
				}
			}
		case e.Kind.IsTexture():
			v := res.(*rhi.TextureView)
			for _, st := range StagesOf(e.Stages, t.Compute) {
				if idx := texBase + slot; c.BindTexture(st, idx, v) {
					b.BindTexture(st, idx, v)
				}
			}
		default:
			s := res.(*rhi.Sampler)
			for _, st := range StagesOf(e.Stages, t.Compute) {
				if idx := smpBase + slot; c.BindSampler(st, idx, s) {
					b.BindSampler(st, idx, s)
				}
			}
		}
	}
}
