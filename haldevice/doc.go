// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package haldevice implements rhi.Device over a wgpu HAL device and queue.
//
// A Device owns the staging pools command lists draw from, submits lists
// that record into HAL command buffers, and tracks their completion by
// queue submission index:
//
//	dev, err := haldevice.New(halDev, halQueue)
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	cl, err := backend.MustDefault().NewCommandList(dev)
//	...
//	fence := rhi.NewFence(false)
//	if err := dev.SubmitCommands(cl, fence); err != nil {
//		return err
//	}
//	dev.WaitForFence(fence, time.Second)
//
// The resource constructors cover what tests and small tools need to
// produce handles. They are not a full resource factory.
//
// A host application that already owns a device injects it with
// FromProvider.
package haldevice
