package metal

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/trace"
)

// fakeEncoder records the calls every encoder kind shares.
type fakeEncoder struct {
	rec  *trace.Recorder
	kind string
}

func (e *fakeEncoder) EndEncoding()                { e.rec.Record("EndEncoding", e.kind) }
func (e *fakeEncoder) PushDebugGroup(l string)     { e.rec.Record("PushDebugGroup", e.kind, l) }
func (e *fakeEncoder) PopDebugGroup()              { e.rec.Record("PopDebugGroup", e.kind) }
func (e *fakeEncoder) InsertDebugSignpost(l string) { e.rec.Record("InsertDebugSignpost", e.kind, l) }

type fakeRender struct {
	fakeEncoder
	desc *RenderPassDescriptor
}

func (e *fakeRender) SetRenderPipelineState(*rhi.Pipeline) { e.rec.Record("SetRenderPipelineState") }
func (e *fakeRender) SetDepthStencilState(*rhi.Pipeline)   { e.rec.Record("SetDepthStencilState") }
func (e *fakeRender) SetCullMode(m gputypes.CullMode)      { e.rec.Record("SetCullMode", m) }
func (e *fakeRender) SetFrontFacing(f gputypes.FrontFace)  { e.rec.Record("SetFrontFacing", f) }
func (e *fakeRender) SetTriangleFillMode(m rhi.FillMode)   { e.rec.Record("SetTriangleFillMode", m) }
func (e *fakeRender) SetBlendColor(c gputypes.Color)       { e.rec.Record("SetBlendColor", c) }
func (e *fakeRender) SetDepthClipMode(clip bool)           { e.rec.Record("SetDepthClipMode", clip) }
func (e *fakeRender) SetStencilReferenceValue(ref uint32)  { e.rec.Record("SetStencilReferenceValue", ref) }
func (e *fakeRender) SetViewports(vps []rhi.Viewport)      { e.rec.Record("SetViewports", len(vps)) }
func (e *fakeRender) SetScissorRects(rects []rhi.Rect)     { e.rec.Record("SetScissorRects", len(rects)) }

func (e *fakeRender) SetVertexBuffer(_ *rhi.Buffer, off uint64, idx uint32) {
	e.rec.Record("SetVertexBuffer", idx, off)
}
func (e *fakeRender) SetVertexBufferOffset(off uint64, idx uint32) {
	e.rec.Record("SetVertexBufferOffset", idx, off)
}
func (e *fakeRender) SetVertexTexture(_ *rhi.TextureView, idx uint32) {
	e.rec.Record("SetVertexTexture", idx)
}
func (e *fakeRender) SetVertexSamplerState(_ *rhi.Sampler, idx uint32) {
	e.rec.Record("SetVertexSamplerState", idx)
}
func (e *fakeRender) SetFragmentBuffer(_ *rhi.Buffer, off uint64, idx uint32) {
	e.rec.Record("SetFragmentBuffer", idx, off)
}
func (e *fakeRender) SetFragmentBufferOffset(off uint64, idx uint32) {
	e.rec.Record("SetFragmentBufferOffset", idx, off)
}
func (e *fakeRender) SetFragmentTexture(_ *rhi.TextureView, idx uint32) {
	e.rec.Record("SetFragmentTexture", idx)
}
func (e *fakeRender) SetFragmentSamplerState(_ *rhi.Sampler, idx uint32) {
	e.rec.Record("SetFragmentSamplerState", idx)
}

func (e *fakeRender) DrawPrimitives(_ gputypes.PrimitiveTopology, start, count, instances, base uint32) {
	e.rec.Record("DrawPrimitives", start, count, instances, base)
}
func (e *fakeRender) DrawIndexedPrimitives(_ gputypes.PrimitiveTopology, count uint32, _ gputypes.IndexFormat,
	_ *rhi.Buffer, off uint64, instances uint32, baseVertex int32, baseInstance uint32) {
	e.rec.Record("DrawIndexedPrimitives", count, off, instances, baseVertex, baseInstance)
}
func (e *fakeRender) DrawPrimitivesIndirect(_ gputypes.PrimitiveTopology, _ *rhi.Buffer, off uint64) {
	e.rec.Record("DrawPrimitivesIndirect", off)
}
func (e *fakeRender) DrawIndexedPrimitivesIndirect(_ gputypes.PrimitiveTopology, _ gputypes.IndexFormat,
	_ *rhi.Buffer, _ uint64, _ *rhi.Buffer, off uint64) {
	e.rec.Record("DrawIndexedPrimitivesIndirect", off)
}

type fakeCompute struct {
	fakeEncoder
	bytes [][]byte
}

func (e *fakeCompute) SetComputePipelineState(*rhi.Pipeline) { e.rec.Record("SetComputePipelineState") }
func (e *fakeCompute) SetKernel(ComputePipelineState)        { e.rec.Record("SetKernel") }
func (e *fakeCompute) SetBuffer(_ *rhi.Buffer, off uint64, idx uint32) {
	e.rec.Record("SetBuffer", idx, off)
}
func (e *fakeCompute) SetBufferOffset(off uint64, idx uint32) { e.rec.Record("SetBufferOffset", idx, off) }
func (e *fakeCompute) SetBytes(data []byte, idx uint32) {
	e.bytes = append(e.bytes, append([]byte(nil), data...))
	e.rec.Record("SetBytes", idx, len(data))
}
func (e *fakeCompute) SetTexture(_ *rhi.TextureView, idx uint32)  { e.rec.Record("SetTexture", idx) }
func (e *fakeCompute) SetSamplerState(_ *rhi.Sampler, idx uint32) { e.rec.Record("SetSamplerState", idx) }
func (e *fakeCompute) DispatchThreadgroups(g, t Size)             { e.rec.Record("DispatchThreadgroups", g, t) }
func (e *fakeCompute) DispatchThreadgroupsIndirect(_ *rhi.Buffer, off uint64, t Size) {
	e.rec.Record("DispatchThreadgroupsIndirect", off, t)
}

type fakeBlit struct {
	fakeEncoder
}

func (e *fakeBlit) CopyBuffer(_ *rhi.Buffer, srcOff uint64, _ *rhi.Buffer, dstOff, size uint64) {
	e.rec.Record("CopyBuffer", srcOff, dstOff, size)
}
func (e *fakeBlit) CopyBufferToTexture(_ *rhi.Buffer, off uint64, bytesPerRow, bytesPerImage uint32, size Size,
	_ *rhi.Texture, slice, level uint32, _ Origin) {
	e.rec.Record("CopyBufferToTexture", off, bytesPerRow, bytesPerImage, size, slice, level)
}
func (e *fakeBlit) CopyTextureToBuffer(_ *rhi.Texture, slice, level uint32, _ Origin, size Size,
	_ *rhi.Buffer, off uint64, bytesPerRow, bytesPerImage uint32) {
	e.rec.Record("CopyTextureToBuffer", slice, level, size, off, bytesPerRow, bytesPerImage)
}
func (e *fakeBlit) CopyTexture(_ *rhi.Texture, srcSlice, srcLevel uint32, _ Origin, size Size,
	_ *rhi.Texture, dstSlice, dstLevel uint32, _ Origin) {
	e.rec.Record("CopyTexture", srcSlice, dstSlice, size)
}
func (e *fakeBlit) GenerateMipmaps(*rhi.Texture) { e.rec.Record("GenerateMipmaps") }

// fakeCommandBuffer hands out encoders that share its recorder.
type fakeCommandBuffer struct {
	rec       *trace.Recorder
	renders   []*fakeRender
	computes  []*fakeCompute
	handlers  []func()
	committed bool
	released  bool
	commitErr error
}

func (cb *fakeCommandBuffer) RenderCommandEncoder(desc *RenderPassDescriptor) RenderCommandEncoder {
	e := &fakeRender{fakeEncoder: fakeEncoder{rec: cb.rec, kind: "render"}, desc: desc}
	cb.renders = append(cb.renders, e)
	cb.rec.Record("RenderCommandEncoder", len(desc.Color))
	return e
}

func (cb *fakeCommandBuffer) ComputeCommandEncoder() ComputeCommandEncoder {
	e := &fakeCompute{fakeEncoder: fakeEncoder{rec: cb.rec, kind: "compute"}}
	cb.computes = append(cb.computes, e)
	cb.rec.Record("ComputeCommandEncoder")
	return e
}

func (cb *fakeCommandBuffer) BlitCommandEncoder() BlitCommandEncoder {
	cb.rec.Record("BlitCommandEncoder")
	return &fakeBlit{fakeEncoder{rec: cb.rec, kind: "blit"}}
}

func (cb *fakeCommandBuffer) AddCompletedHandler(fn func()) { cb.handlers = append(cb.handlers, fn) }

func (cb *fakeCommandBuffer) Commit() error {
	cb.rec.Record("Commit")
	if cb.commitErr != nil {
		return cb.commitErr
	}
	cb.committed = true
	return nil
}

// complete runs the completed handlers as the GPU would.
func (cb *fakeCommandBuffer) complete() {
	for _, fn := range cb.handlers {
		fn()
	}
}

func (cb *fakeCommandBuffer) Release() {
	cb.released = true
	cb.rec.Record("Release")
}

type fakeKernel struct{ released bool }

func (k *fakeKernel) Release() { k.released = true }

// fakeDevice is a Device whose command buffers record into one trace.
type fakeDevice struct {
	rec      *trace.Recorder
	features rhi.Features
	buffers  []*fakeCommandBuffer
	kernels  []*fakeKernel
	returned []*rhi.Buffer
	updates  int
}

func (d *fakeDevice) NewCommandBuffer() (CommandBuffer, error) {
	cb := &fakeCommandBuffer{rec: d.rec}
	d.buffers = append(d.buffers, cb)
	return cb, nil
}

func (d *fakeDevice) NewComputePipelineState(source, entryPoint string) (ComputePipelineState, error) {
	if source == "" || entryPoint == "" {
		return nil, errors.New("empty kernel")
	}
	k := &fakeKernel{}
	d.kernels = append(d.kernels, k)
	return k, nil
}

func (d *fakeDevice) SubmitCommands(rhi.CommandList, *rhi.Fence) error { return errors.ErrUnsupported }
func (d *fakeDevice) WaitForFence(*rhi.Fence, time.Duration) bool       { return true }

func (d *fakeDevice) GetPooledStagingBuffer(minSize uint64) (*rhi.Buffer, error) {
	return rhi.NewBuffer(minSize, rhi.BufferUsageStagingWrite, nil, nil), nil
}

func (d *fakeDevice) ReturnPooledStagingBuffers(bufs []*rhi.Buffer) {
	d.returned = append(d.returned, bufs...)
}
func (d *fakeDevice) ReturnPooledStagingTextures([]*rhi.Texture) {}

func (d *fakeDevice) UpdateBuffer(*rhi.Buffer, uint64, []byte) error {
	d.updates++
	return nil
}

func (d *fakeDevice) SetResourceName(rhi.Resource, string) {}
func (d *fakeDevice) Features() rhi.Features                 { return d.features }

// plainDevice is an rhi.Device that cannot create Metal command buffers.
type plainDevice struct{ rhi.Device }

type harness struct {
	rec *trace.Recorder
	dev *fakeDevice
	cl  *CommandList
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{rec: trace.New()}
	h.dev = &fakeDevice{rec: h.rec}
	cl, err := NewCommandList(h.dev, opts...)
	if err != nil {
		t.Fatalf("NewCommandList: %v", err)
	}
	h.cl = cl
	return h
}

// cb returns the command buffer of the latest recording.
func (h *harness) cb() *fakeCommandBuffer {
	return h.dev.buffers[len(h.dev.buffers)-1]
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newTexture(usage rhi.TextureUsage, f gputypes.TextureFormat, mips uint32) *rhi.Texture {
	return rhi.NewTexture(rhi.TextureDescriptor{
		Width: 16, Height: 16, MipLevels: mips,
		Format: f,
		Usage:  usage,
	}, nil, nil, nil)
}

func newFramebuffer(t *testing.T, color *rhi.Texture, depth *rhi.Texture) *rhi.Framebuffer {
	t.Helper()
	desc := rhi.FramebufferDescriptor{ColorTargets: []rhi.FramebufferAttachment{{Target: color}}}
	if depth != nil {
		desc.DepthTarget = &rhi.FramebufferAttachment{Target: depth}
	}
	fb, err := rhi.NewFramebuffer(desc)
	if err != nil {
		t.Fatalf("NewFramebuffer: %v", err)
	}
	return fb
}

func newLayout(t *testing.T, stages gputypes.ShaderStages, kinds ...rhi.ResourceKind) *rhi.ResourceLayout {
	t.Helper()
	elems := make([]rhi.ResourceLayoutElement, len(kinds))
	for i, k := range kinds {
		elems[i] = rhi.ResourceLayoutElement{Kind: k, Stages: stages}
	}
	l, err := rhi.NewResourceLayout(elems, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceLayout: %v", err)
	}
	return l
}

func newSet(t *testing.T, l *rhi.ResourceLayout, res ...rhi.BindableResource) *rhi.ResourceSet {
	t.Helper()
	s, err := rhi.NewResourceSet(l, res, nil, nil)
	if err != nil {
		t.Fatalf("NewResourceSet: %v", err)
	}
	return s
}

var red = gputypes.Color{R: 1, A: 1}
