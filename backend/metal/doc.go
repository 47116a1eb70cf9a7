// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metal translates rhi command lists into command buffers in the
// manner of Metal, where one render, compute or blit encoder is open at a
// time.
//
// Opening an encoder of one kind ends the encoder of any other kind.
// Render encoders are created lazily by the first draw, and queued clears
// become load actions of that pass. Every binding made on an encoder is
// cached per stage and native index; the cache of a stage is dropped when
// its encoder ends, so the next encoder receives the full state again.
//
// The native layer is supplied by the caller as an implementation of
// Device; no implementation ships with this module, and NewCommandList
// rejects other devices with backend.ErrUnsupportedDevice. Each recording
// gets a fresh native command buffer from Device:
//
//	cl, err := metal.NewCommandList(dev)
//	if err != nil {
//		return err
//	}
//	// Begin, record, End
//	if err := cl.Commit(fence); err != nil {
//		return err
//	}
//
// Buffer copies that are not 4-byte aligned run a compute kernel compiled
// from WGSL to MSL on first use.
//
// Importing the package registers the backend under backend.Metal.
package metal
