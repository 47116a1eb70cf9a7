// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/pool"
)

// ErrNoHAL is returned by FromProvider when the provider does not expose
// HAL device and queue handles.
var ErrNoHAL = errors.New("haldevice: provider does not expose HAL types")

// Device implements rhi.Device over a HAL device and queue.
//
// Device is safe for concurrent use.
type Device struct {
	dev   hal.Device
	queue hal.Queue
	opts  options

	staging    *pool.StagingBuffers
	stagingTex *pool.StagingTextures

	mu      sync.Mutex
	pending []submission
	closed  bool
}

var _ rhi.Device = (*Device)(nil)

// New wraps dev and queue. The caller keeps ownership of both; Close
// releases only what the Device created.
func New(dev hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, fmt.Errorf("haldevice: nil device or queue: %w", rhi.ErrInvalidDescriptor)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{dev: dev, queue: queue, opts: o}
	d.staging = pool.NewStagingBuffers(d.createStagingBuffer, o.bucketLimit)
	d.stagingTex = pool.NewStagingTextures(d.createStagingTexture, o.bucketLimit)
	rhi.Logger().Debug("haldevice: created", "label", o.label, "features", o.features)
	return d, nil
}

// FromProvider wraps the device of a host application. The provider's
// Device and Queue must be HAL types, either directly or through
// HalDevice and HalQueue accessors.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNoHAL
	}
	dev, queue, err := halFromProvider(p)
	if err != nil {
		return nil, err
	}
	return New(dev, queue, opts...)
}

func halFromProvider(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	if dev, ok := p.Device().(hal.Device); ok && dev != nil {
		if queue, ok := p.Queue().(hal.Queue); ok && queue != nil {
			return dev, queue, nil
		}
	}
	type halAccessor interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halAccessor)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return dev, queue, nil
}

// HALDevice returns the wrapped HAL device.
func (d *Device) HALDevice() hal.Device { return d.dev }

// HALQueue returns the wrapped HAL queue.
func (d *Device) HALQueue() hal.Queue { return d.queue }

// Features reports the configured feature set.
func (d *Device) Features() rhi.Features { return d.opts.features }

// SetResourceName names res. HAL objects are labeled at creation only, so
// the native object keeps its original label.
func (d *Device) SetResourceName(res rhi.Resource, name string) {
	res.SetName(name)
	rhi.Logger().Debug("haldevice: resource named", "name", name)
}

// GetPooledStagingBuffer returns a host-writable staging buffer of at
// least minSize bytes.
func (d *Device) GetPooledStagingBuffer(minSize uint64) (*rhi.Buffer, error) {
	return d.staging.Get(minSize)
}

// ReturnPooledStagingBuffers hands staging buffers back to the pool.
func (d *Device) ReturnPooledStagingBuffers(bufs []*rhi.Buffer) {
	d.staging.Put(bufs...)
}

// GetPooledStagingTexture returns a staging texture with the shape of desc.
func (d *Device) GetPooledStagingTexture(desc rhi.TextureDescriptor) (*rhi.Texture, error) {
	return d.stagingTex.Get(desc)
}

// ReturnPooledStagingTextures hands staging textures back to the pool.
func (d *Device) ReturnPooledStagingTextures(texs []*rhi.Texture) {
	d.stagingTex.Put(texs...)
}

// UpdateBuffer writes data at offset. Staging buffers are mapped and
// written directly; other buffers go through the queue.
func (d *Device) UpdateBuffer(dst *rhi.Buffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > dst.Size() {
		return fmt.Errorf("haldevice: update of %d bytes at %d exceeds buffer of %d: %w",
			len(data), offset, dst.Size(), rhi.ErrInvalidCopy)
	}
	if len(data) == 0 {
		return nil
	}
	native := dst.HAL()
	if native == nil {
		return fmt.Errorf("haldevice: update buffer %q: %w", dst.Name(), rhi.ErrInvalidDescriptor)
	}
	if !dst.IsStaging() {
		return rhi.CheckResult(d.queue.WriteBuffer(native, offset, data))
	}
	m, err := d.dev.MapBuffer(native, offset, uint64(len(data)))
	if err != nil {
		return rhi.CheckResult(err)
	}
	copy(unsafe.Slice((*byte)(m.Ptr), len(data)), data)
	return rhi.CheckResult(d.dev.UnmapBuffer(native))
}

// ReadBuffer copies len(out) bytes at offset out of a staging buffer.
func (d *Device) ReadBuffer(src *rhi.Buffer, offset uint64, out []byte) error {
	if !src.IsStaging() || src.HAL() == nil {
		return fmt.Errorf("haldevice: read of non-staging buffer %q: %w", src.Name(), rhi.ErrInvalidDescriptor)
	}
	if offset+uint64(len(out)) > src.Size() {
		return fmt.Errorf("haldevice: read of %d bytes at %d exceeds buffer of %d: %w",
			len(out), offset, src.Size(), rhi.ErrInvalidCopy)
	}
	if len(out) == 0 {
		return nil
	}
	m, err := d.dev.MapBuffer(src.HAL(), offset, uint64(len(out)))
	if err != nil {
		return rhi.CheckResult(err)
	}
	copy(out, unsafe.Slice((*byte)(m.Ptr), len(out)))
	return rhi.CheckResult(d.dev.UnmapBuffer(src.HAL()))
}

func (d *Device) createStagingBuffer(size uint64) (*rhi.Buffer, error) {
	return d.newHALBuffer(size, rhi.BufferUsageStagingWrite,
		gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst|gputypes.BufferUsageStorage,
		"staging")
}

func (d *Device) createStagingTexture(desc rhi.TextureDescriptor) (*rhi.Texture, error) {
	buf, err := d.newHALBuffer(rhi.StagingSize(desc), rhi.BufferUsageStagingRead|rhi.BufferUsageStagingWrite,
		gputypes.BufferUsageMapWrite|gputypes.BufferUsageMapRead|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst,
		"staging texture")
	if err != nil {
		return nil, err
	}
	tex, err := rhi.NewStagingTexture(desc, buf, nil)
	// The texture holds its own reference to buf.
	buf.Dispose()
	return tex, err
}

func (d *Device) newHALBuffer(size uint64, usage rhi.BufferUsage, native gputypes.BufferUsage, what string) (*rhi.Buffer, error) {
	hb, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label(what),
		Size:  size,
		Usage: native,
	})
	if err != nil {
		return nil, rhi.CheckResult(err)
	}
	return rhi.NewBuffer(size, usage, hb, func() { d.dev.DestroyBuffer(hb) }), nil
}

func (d *Device) label(what string) string {
	if d.opts.label == "" {
		return what
	}
	return d.opts.label + " " + what
}

// Close retires every pending submission and releases pooled staging
// resources. The HAL device and queue stay open.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	if err := d.dev.WaitIdle(); err != nil {
		rhi.Logger().Warn("haldevice: wait idle on close", "err", err)
	}
	d.retire(^uint64(0))
	d.staging.Close()
	d.stagingTex.Close()
	rhi.Logger().Debug("haldevice: closed", "label", d.opts.label)
}
