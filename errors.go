// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Usage errors. These are returned synchronously by the command list call
// that detected them. The recording is left in an undefined state and should
// be discarded.
var (
	// ErrNotRecording is returned when a recording operation is called
	// outside a Begin/End pair.
	ErrNotRecording = errors.New("rhi: command list is not recording")

	// ErrAlreadyRecording is returned when Begin is called twice without End.
	ErrAlreadyRecording = errors.New("rhi: command list is already recording")

	// ErrNoFramebuffer is returned by draws and clears issued before SetFramebuffer.
	ErrNoFramebuffer = errors.New("rhi: no framebuffer bound")

	// ErrNoPipeline is returned by draws and dispatches issued before SetPipeline.
	ErrNoPipeline = errors.New("rhi: no pipeline bound")

	// ErrNoIndexBuffer is returned by indexed draws issued before SetIndexBuffer.
	ErrNoIndexBuffer = errors.New("rhi: no index buffer bound")

	// ErrIncompatibleSet is returned when a resource set does not match the
	// layout the active pipeline declares for that slot.
	ErrIncompatibleSet = errors.New("rhi: resource set incompatible with pipeline layout")

	// ErrIndexOutOfRange is returned when a slot, attachment or viewport index
	// exceeds the declared count.
	ErrIndexOutOfRange = errors.New("rhi: index out of range")

	// ErrInvalidCopy is returned when a copy region exceeds a resource bound.
	ErrInvalidCopy = errors.New("rhi: invalid copy region")

	// ErrInvalidDescriptor is returned when a resource description is
	// inconsistent, such as framebuffer attachments with different sample
	// counts.
	ErrInvalidDescriptor = errors.New("rhi: invalid descriptor")

	// ErrDisposed is returned when a disposed object is used.
	ErrDisposed = errors.New("rhi: object disposed")

	// ErrFenceInUse is returned when a fence is reset while a wait on it is
	// outstanding.
	ErrFenceInUse = errors.New("rhi: fence has an outstanding wait")
)

// Backend errors.
var (
	// ErrOutOfHostMemory reports a host allocation failure in the native
	// layer. HAL has no such condition; native layers that detect one wrap
	// this error themselves.
	ErrOutOfHostMemory = errors.New("rhi: out of host memory")

	// ErrOutOfDeviceMemory reports a device allocation failure in the native layer.
	ErrOutOfDeviceMemory = errors.New("rhi: out of device memory")

	// ErrFatal wraps any other native failure.
	ErrFatal = errors.New("rhi: native call failed")
)

// CheckResult classifies an error returned by a native call.
// hal.ErrDeviceOutOfMemory maps to ErrOutOfDeviceMemory, errors already
// wrapping one of the backend errors are returned unchanged, and everything
// else is wrapped in ErrFatal. CheckResult returns nil for a nil error.
func CheckResult(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOutOfDeviceMemory), errors.Is(err, ErrOutOfHostMemory), errors.Is(err, ErrFatal):
		return err
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %w", ErrOutOfDeviceMemory, err)
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("%w: device lost: %w", ErrFatal, err)
	default:
		return fmt.Errorf("%w: %w", ErrFatal, err)
	}
}
