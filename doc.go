// Package rhi is a backend-neutral command-list layer for GPU work.
//
// # Overview
//
// Client code records draws, dispatches, copies and binding changes into a
// [CommandList]. Each backend translates the recording into its native
// command stream:
//
//   - backend/vulkan targets an explicit-barrier command buffer. It tracks
//     the layout of every texture subresource and inserts pipeline barriers.
//   - backend/metal targets an encoder-exclusive command buffer, where only
//     one render, blit or compute encoder is open at a time.
//
// Both share one encoder state machine (render passes begin lazily, at the
// first draw or clear that needs them) and one binding resolver that
// skips native calls for state that did not change.
//
// # Quick Start
//
//	dev, err := haldevice.New(halDevice, halQueue)
//	if err != nil {
//	    return err
//	}
//	cl, err := vulkan.NewCommandList(dev)
//	if err != nil {
//	    return err
//	}
//	defer cl.Dispose()
//
//	cl.Begin()
//	cl.SetFramebuffer(fb)
//	cl.ClearColorTarget(0, gputypes.Color{R: 1, A: 1})
//	cl.End()
//
//	fence := rhi.NewFence(false)
//	dev.SubmitCommands(cl, fence)
//	dev.WaitForFence(fence, time.Second)
//
// # Resource Lifetime
//
// Every resource carries a [RefCount]. The creator holds one reference and
// releases it with Dispose. A recording that touches a resource holds one
// more until the submission retires, so a resource disposed while in
// flight is destroyed only after the GPU is done with it.
//
// # Errors
//
// Misuse such as drawing outside Begin/End returns a sentinel error from
// this package. Native failures are classified by [CheckResult]. Broken
// internal invariants, such as an image layout transition with no known
// barrier, panic.
//
// # Logging
//
// rhi is silent by default. Call [SetLogger] to receive slog records from
// the core and every backend.
package rhi
