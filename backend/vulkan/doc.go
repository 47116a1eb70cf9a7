// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan translates rhi command lists into explicit command
// buffers in the manner of Vulkan.
//
// Render passes open lazily on the first draw or clear and close before
// any transfer or dispatch. Image layouts are tracked per subresource and
// every transition is emitted as a pipeline barrier. At the end of a
// recording, attachments that are sampled move to ShaderReadOnly and
// drawable color targets move to PresentSrc.
//
// A CommandList records into a CommandBuffer obtained from a
// CommandBufferAllocator. HALAllocator provides command buffers over a
// wgpu HAL device:
//
//	alloc, err := vulkan.NewHALAllocator(halDevice, halQueue)
//	if err != nil {
//		return err
//	}
//	cl, err := vulkan.NewCommandList(dev, vulkan.WithAllocator(alloc))
//
// Importing the package registers the backend under backend.Vulkan.
package vulkan
