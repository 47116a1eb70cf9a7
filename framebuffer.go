// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// FramebufferAttachment names the subresource a framebuffer renders into.
type FramebufferAttachment struct {
	Target     *Texture
	ArrayLayer uint32
	MipLevel   uint32

	// View is the native view of the attachment subresource. When nil the
	// texture's default view is used.
	View hal.TextureView
}

// HAL returns the native view of the attachment.
func (a FramebufferAttachment) HAL() hal.TextureView {
	if a.View != nil {
		return a.View
	}
	return a.Target.DefaultView()
}

// FramebufferDescriptor lists the attachments of a framebuffer.
type FramebufferDescriptor struct {
	DepthTarget  *FramebufferAttachment
	ColorTargets []FramebufferAttachment
}

// Drawable is implemented by swapchains that back a framebuffer.
type Drawable interface {
	// EnsureDrawableAvailable acquires the next presentable image if needed.
	// It returns false when the platform has no image available; the
	// render pass that needed it is skipped.
	EnsureDrawableAvailable() bool
}

// OutputDescription summarizes the attachment formats of a framebuffer.
type OutputDescription struct {
	DepthFormat  gputypes.TextureFormat
	ColorFormats []gputypes.TextureFormat
	SampleCount  uint32
}

// Framebuffer is a set of render targets.
type Framebuffer struct {
	resource
	depth    *FramebufferAttachment
	colors   []FramebufferAttachment
	drawable Drawable
	width    uint32
	height   uint32
	samples  uint32
}

// NewFramebuffer validates the attachments and holds a reference to each
// target texture. All attachments must share one sample count.
func NewFramebuffer(desc FramebufferDescriptor) (*Framebuffer, error) {
	return NewFramebufferWithRelease(desc, nil)
}

// NewFramebufferWithRelease is NewFramebuffer for framebuffers that own
// native objects, such as per-attachment views. release runs once the last
// reference is dropped; it may be nil.
func NewFramebufferWithRelease(desc FramebufferDescriptor, release func()) (*Framebuffer, error) {
	fb := &Framebuffer{colors: append([]FramebufferAttachment(nil), desc.ColorTargets...)}
	if desc.DepthTarget != nil {
		d := *desc.DepthTarget
		fb.depth = &d
	}

	var targets []*Texture
	check := func(a FramebufferAttachment, what string) error {
		if a.Target == nil {
			return fmt.Errorf("%w: %s has no target", ErrInvalidDescriptor, what)
		}
		if a.MipLevel >= a.Target.MipLevels() || a.ArrayLayer >= a.Target.ActualArrayLayers() {
			return fmt.Errorf("%w: %s names mip %d layer %d outside its texture", ErrInvalidDescriptor, what, a.MipLevel, a.ArrayLayer)
		}
		if len(targets) == 0 {
			fb.samples = a.Target.SampleCount()
			fb.width, fb.height, _ = a.Target.MipDimensions(a.MipLevel)
		} else if a.Target.SampleCount() != fb.samples {
			return fmt.Errorf("%w: %s has %d samples, framebuffer has %d", ErrInvalidDescriptor, what, a.Target.SampleCount(), fb.samples)
		}
		targets = append(targets, a.Target)
		return nil
	}
	if fb.depth != nil {
		if err := check(*fb.depth, "depth target"); err != nil {
			return nil, err
		}
	}
	for i, c := range fb.colors {
		if err := check(c, fmt.Sprintf("color target %d", i)); err != nil {
			return nil, err
		}
	}

	for _, t := range targets {
		t.RefCount().Increment()
	}
	fb.resource = newResource(func() {
		if release != nil {
			release()
		}
		for _, t := range targets {
			t.RefCount().Decrement()
		}
	})
	return fb, nil
}

// NewSwapchainFramebuffer creates a framebuffer whose targets are acquired
// from drawable before each render pass.
func NewSwapchainFramebuffer(desc FramebufferDescriptor, drawable Drawable) (*Framebuffer, error) {
	fb, err := NewFramebuffer(desc)
	if err != nil {
		return nil, err
	}
	fb.drawable = drawable
	return fb, nil
}

// ColorTargets returns the color attachments in order. The slice must not
// be modified.
func (fb *Framebuffer) ColorTargets() []FramebufferAttachment { return fb.colors }

// DepthTarget returns the depth attachment, or nil.
func (fb *Framebuffer) DepthTarget() *FramebufferAttachment { return fb.depth }

// AttachmentCount returns the number of attachments, depth included.
func (fb *Framebuffer) AttachmentCount() int {
	n := len(fb.colors)
	if fb.depth != nil {
		n++
	}
	return n
}

// RenderableExtent returns the size of the render area.
func (fb *Framebuffer) RenderableExtent() (width, height uint32) { return fb.width, fb.height }

// Drawable returns the swapchain backing fb, or nil.
func (fb *Framebuffer) Drawable() Drawable { return fb.drawable }

// OutputDescription returns the attachment formats and sample count.
func (fb *Framebuffer) OutputDescription() OutputDescription {
	out := OutputDescription{SampleCount: max(fb.samples, 1)}
	if fb.depth != nil {
		out.DepthFormat = fb.depth.Target.Format()
	}
	for _, c := range fb.colors {
		out.ColorFormats = append(out.ColorFormats, c.Target.Format())
	}
	return out
}
