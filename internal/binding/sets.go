// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package binding resolves resource sets and vertex buffers to native
// binding indices and tracks what is currently bound, so command lists skip
// native calls for state that did not change.
package binding

import (
	"slices"

	"github.com/gogpu/rhi"
)

// Record is a bound resource set together with its dynamic offsets.
type Record struct {
	Set     *rhi.ResourceSet
	Offsets []uint32
}

// Equals reports whether r binds the same set object with the same offsets.
func (r Record) Equals(set *rhi.ResourceSet, offsets []uint32) bool {
	return r.Set == set && slices.Equal(r.Offsets, offsets)
}

// OffsetAllocator provides the storage a record keeps its dynamic offsets
// in. Every slice returned by Alloc is passed to Free exactly once.
type OffsetAllocator interface {
	Alloc(n int) []uint32
	Free(s []uint32)
}

// maxPooledOffsets bounds the offset arrays kept for reuse.
const maxPooledOffsets = 16

// OffsetPool is an OffsetAllocator that reuses small offset arrays.
// The zero value is ready to use. It is owned by one command list and is
// not safe for concurrent use.
type OffsetPool struct {
	free [maxPooledOffsets + 1][][]uint32
}

// Alloc returns a zeroed slice of length n.
func (p *OffsetPool) Alloc(n int) []uint32 {
	if n <= maxPooledOffsets {
		if list := p.free[n]; len(list) > 0 {
			s := list[len(list)-1]
			p.free[n] = list[:len(list)-1]
			clear(s)
			return s
		}
	}
	return make([]uint32, n)
}

// Free returns s to the pool.
func (p *OffsetPool) Free(s []uint32) {
	if n := len(s); n <= maxPooledOffsets {
		p.free[n] = append(p.free[n], s)
	}
}

type setSlot struct {
	rec    Record
	active bool
}

// Sets tracks the resource sets bound at each slot of one pipeline kind
// (graphics or compute). A slot is active once its record has been applied
// to the native stream; rebinding an equal record keeps it active.
type Sets struct {
	alloc OffsetAllocator
	slots []setSlot
}

// NewSets creates an empty tracker. A nil alloc uses a private OffsetPool.
func NewSets(alloc OffsetAllocator) *Sets {
	if alloc == nil {
		alloc = &OffsetPool{}
	}
	return &Sets{alloc: alloc}
}

// Len returns the number of slots.
func (s *Sets) Len() int { return len(s.slots) }

// Resize grows or shrinks the slot count to n. Records in removed slots
// release their offset storage.
func (s *Sets) Resize(n int) {
	for i := n; i < len(s.slots); i++ {
		s.release(i)
	}
	if n <= len(s.slots) {
		s.slots = s.slots[:n]
		return
	}
	s.slots = append(s.slots, make([]setSlot, n-len(s.slots))...)
}

// Bind records set with offsets at slot and reports whether the record
// changed. An equal record is left untouched, still active if it was.
// A new record copies offsets into fresh storage and releases the storage
// of the record it replaces.
func (s *Sets) Bind(slot int, set *rhi.ResourceSet, offsets []uint32) bool {
	if slot >= len(s.slots) {
		s.Resize(slot + 1)
	}
	cur := &s.slots[slot]
	if cur.rec.Set != nil && cur.rec.Equals(set, offsets) {
		return false
	}
	s.release(slot)
	rec := Record{Set: set}
	if len(offsets) > 0 {
		rec.Offsets = s.alloc.Alloc(len(offsets))
		copy(rec.Offsets, offsets)
	}
	*cur = setSlot{rec: rec}
	return true
}

func (s *Sets) release(slot int) {
	if off := s.slots[slot].rec.Offsets; off != nil {
		s.alloc.Free(off)
	}
	s.slots[slot] = setSlot{}
}

// Record returns the record bound at slot.
func (s *Sets) Record(slot int) Record {
	if slot >= len(s.slots) {
		return Record{}
	}
	return s.slots[slot].rec
}

// Active reports whether the record at slot has been applied.
func (s *Sets) Active(slot int) bool {
	return slot < len(s.slots) && s.slots[slot].active
}

// Pending reports whether any bound slot still needs applying.
func (s *Sets) Pending() bool {
	for _, sl := range s.slots {
		if sl.rec.Set != nil && !sl.active {
			return true
		}
	}
	return false
}

// Invalidate marks every slot inactive so the next flush reapplies it.
func (s *Sets) Invalidate() {
	for i := range s.slots {
		s.slots[i].active = false
	}
}

// Clear drops every record and releases its offset storage.
func (s *Sets) Clear() {
	for i := range s.slots {
		s.release(i)
	}
}

// Flush calls apply for every bound slot that is not active, in slot
// order, and marks it active.
func (s *Sets) Flush(apply func(slot int, rec Record)) {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.rec.Set == nil || sl.active {
			continue
		}
		apply(i, sl.rec)
		sl.active = true
	}
}

// FlushBatches is Flush for backends that bind runs of consecutive slots
// in one native call. apply receives the first slot of each run of
// inactive bound slots and the records of the run; recs is only valid
// during the call.
func (s *Sets) FlushBatches(apply func(first int, recs []Record)) {
	var batch []Record
	first := -1
	emit := func() {
		if len(batch) > 0 {
			apply(first, batch)
		}
		batch, first = batch[:0], -1
	}
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.rec.Set == nil || sl.active {
			emit()
			continue
		}
		if first < 0 {
			first = i
		}
		batch = append(batch, sl.rec)
		sl.active = true
	}
	emit()
}

// ConcatOffsets appends the dynamic offsets of recs to dst in order.
func ConcatOffsets(dst []uint32, recs []Record) []uint32 {
	for _, r := range recs {
		dst = append(dst, r.Offsets...)
	}
	return dst
}
