package cmdbase

import (
	"fmt"
	"slices"

	"github.com/gogpu/rhi"
)

// SetViewport records viewport index.
func (b *Base) SetViewport(index uint32, vp rhi.Viewport) error {
	if err := b.checkViewportIndex("set viewport", index); err != nil {
		return err
	}
	b.viewports[index] = vp
	b.viewportsDirty = true
	return nil
}

// SetScissorRect records scissor rectangle index.
func (b *Base) SetScissorRect(index uint32, r rhi.Rect) error {
	if err := b.checkViewportIndex("set scissor rect", index); err != nil {
		return err
	}
	b.scissors[index] = r
	b.scissorsDirty = true
	return nil
}

func (b *Base) checkViewportIndex(op string, index uint32) error {
	if err := b.Check(op); err != nil {
		return err
	}
	if b.framebuffer == nil {
		return fmt.Errorf("%s: %w", op, rhi.ErrNoFramebuffer)
	}
	if int(index) >= len(b.viewports) {
		return fmt.Errorf("%s %d: %d available: %w", op, index, len(b.viewports), rhi.ErrIndexOutOfRange)
	}
	return nil
}

// FullViewport returns the viewport covering the bound framebuffer.
func (b *Base) FullViewport() rhi.Viewport {
	w, h := b.framebuffer.RenderableExtent()
	return rhi.Viewport{Width: float32(w), Height: float32(h), MinDepth: 0, MaxDepth: 1}
}

// FullScissorRect returns the rectangle covering the bound framebuffer.
func (b *Base) FullScissorRect() rhi.Rect {
	w, h := b.framebuffer.RenderableExtent()
	return rhi.Rect{Width: w, Height: h}
}

// SetFullViewport sets viewport index to cover the framebuffer.
func (b *Base) SetFullViewport(index uint32) error {
	if err := b.checkViewportIndex("set full viewport", index); err != nil {
		return err
	}
	return b.SetViewport(index, b.FullViewport())
}

// SetFullViewports sets every viewport to cover the framebuffer.
func (b *Base) SetFullViewports() error {
	for i := range b.viewportSlots() {
		if err := b.SetFullViewport(uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

// SetFullScissorRect sets scissor rectangle index to cover the framebuffer.
func (b *Base) SetFullScissorRect(index uint32) error {
	if err := b.checkViewportIndex("set full scissor rect", index); err != nil {
		return err
	}
	return b.SetScissorRect(index, b.FullScissorRect())
}

// SetFullScissorRects sets every scissor rectangle to cover the
// framebuffer.
func (b *Base) SetFullScissorRects() error {
	for i := range b.viewportSlots() {
		if err := b.SetFullScissorRect(uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

// viewportSlots returns at least one so an unbound framebuffer is
// reported by the per-index check.
func (b *Base) viewportSlots() int { return max(len(b.viewports), 1) }

// Viewports returns the recorded viewports. The slice must not be
// modified.
func (b *Base) Viewports() []rhi.Viewport { return b.viewports }

// ScissorRects returns the recorded scissor rectangles. The slice must not
// be modified.
func (b *Base) ScissorRects() []rhi.Rect { return b.scissors }

// TakeViewportsDirty reports whether viewports changed since the last
// call and clears the flag.
func (b *Base) TakeViewportsDirty() bool {
	d := b.viewportsDirty
	b.viewportsDirty = false
	return d
}

// TakeScissorsDirty reports whether scissor rectangles changed since the
// last call and clears the flag.
func (b *Base) TakeScissorsDirty() bool {
	d := b.scissorsDirty
	b.scissorsDirty = false
	return d
}

// MarkViewportsDirty forces the next flush to reapply the viewports and
// scissors that were set, as needed after a native pass restart.
func (b *Base) MarkViewportsDirty() {
	b.viewportsDirty = slices.ContainsFunc(b.viewports, func(v rhi.Viewport) bool { return v != (rhi.Viewport{}) })
	b.scissorsDirty = slices.ContainsFunc(b.scissors, func(r rhi.Rect) bool { return r != (rhi.Rect{}) })
}
