package vulkan

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/layout"
	"github.com/gogpu/rhi/internal/trace"
)

// fakeCommandBuffer records every native call into a trace.
type fakeCommandBuffer struct {
	rec      *trace.Recorder
	passes   []RenderPass
	barriers []ImageBarrier
	copies   [][]BufferCopy
	viewport []rhi.Viewport
	sets     [][]*rhi.ResourceSet
}

func (f *fakeCommandBuffer) Begin() error { f.rec.Record("Begin"); return nil }
func (f *fakeCommandBuffer) End() error   { f.rec.Record("End"); return nil }
func (f *fakeCommandBuffer) Reset() error { f.rec.Record("Reset"); return nil }

func (f *fakeCommandBuffer) BeginRenderPass(rp RenderPass) {
	f.passes = append(f.passes, rp)
	f.rec.Record("BeginRenderPass", rp.First)
}
func (f *fakeCommandBuffer) EndRenderPass() { f.rec.Record("EndRenderPass") }

func (f *fakeCommandBuffer) ClearAttachments(c []ClearAttachment, r rhi.Rect) {
	f.rec.Record("ClearAttachments", len(c), r)
}

func (f *fakeCommandBuffer) PipelineBarrier(src, dst layout.Stage, mem []MemoryBarrier, images []ImageBarrier) {
	f.barriers = append(f.barriers, images...)
	f.rec.Record("PipelineBarrier", src, dst, len(mem), len(images))
}

func (f *fakeCommandBuffer) BindPipeline(p *rhi.Pipeline) { f.rec.Record("BindPipeline", p.IsCompute()) }

func (f *fakeCommandBuffer) BindResourceSets(_ *rhi.Pipeline, first uint32, sets []*rhi.ResourceSet, offsets []uint32) {
	f.sets = append(f.sets, append([]*rhi.ResourceSet(nil), sets...))
	f.rec.Record("BindResourceSets", first, len(sets), append([]uint32(nil), offsets...))
}

func (f *fakeCommandBuffer) BindVertexBuffers(first uint32, bufs []*rhi.Buffer, _ []uint64) {
	f.rec.Record("BindVertexBuffers", first, len(bufs))
}

func (f *fakeCommandBuffer) BindIndexBuffer(_ *rhi.Buffer, offset uint64, format gputypes.IndexFormat) {
	f.rec.Record("BindIndexBuffer", offset, format)
}

func (f *fakeCommandBuffer) SetViewports(first uint32, vps []rhi.Viewport) {
	f.viewport = append(f.viewport[:0], vps...)
	f.rec.Record("SetViewports", first, len(vps))
}

func (f *fakeCommandBuffer) SetScissors(first uint32, rects []rhi.Rect) {
	f.rec.Record("SetScissors", first, len(rects))
}

func (f *fakeCommandBuffer) Draw(v, i, fv, fi uint32) { f.rec.Record("Draw", v, i, fv, fi) }
func (f *fakeCommandBuffer) DrawIndexed(n, i, fi uint32, vo int32, fin uint32) {
	f.rec.Record("DrawIndexed", n, i, fi, vo, fin)
}
func (f *fakeCommandBuffer) DrawIndirect(_ *rhi.Buffer, off uint64, n, stride uint32) {
	f.rec.Record("DrawIndirect", off, n, stride)
}
func (f *fakeCommandBuffer) DrawIndexedIndirect(_ *rhi.Buffer, off uint64, n, stride uint32) {
	f.rec.Record("DrawIndexedIndirect", off, n, stride)
}
func (f *fakeCommandBuffer) Dispatch(x, y, z uint32) { f.rec.Record("Dispatch", x, y, z) }
func (f *fakeCommandBuffer) DispatchIndirect(_ *rhi.Buffer, off uint64) {
	f.rec.Record("DispatchIndirect", off)
}

func (f *fakeCommandBuffer) CopyBuffer(_, _ *rhi.Buffer, regions []BufferCopy) {
	f.copies = append(f.copies, append([]BufferCopy(nil), regions...))
	f.rec.Record("CopyBuffer", len(regions))
}
func (f *fakeCommandBuffer) CopyImage(_, _ *rhi.Texture, r []ImageCopy) { f.rec.Record("CopyImage", len(r)) }
func (f *fakeCommandBuffer) CopyBufferToImage(_ *rhi.Buffer, _ *rhi.Texture, r []BufferImageCopy) {
	f.rec.Record("CopyBufferToImage", len(r))
}
func (f *fakeCommandBuffer) CopyImageToBuffer(_ *rhi.Texture, _ *rhi.Buffer, r []BufferImageCopy) {
	f.rec.Record("CopyImageToBuffer", len(r))
}
func (f *fakeCommandBuffer) BlitImage(_, _ *rhi.Texture, r []ImageBlit) {
	f.rec.Record("BlitImage", r[0].SrcSubresource.MipLevel, r[0].DstSubresource.MipLevel)
}
func (f *fakeCommandBuffer) ResolveImage(_, _ *rhi.Texture, _ ImageResolve) { f.rec.Record("ResolveImage") }

func (f *fakeCommandBuffer) BeginDebugLabel(l string)  { f.rec.Record("BeginDebugLabel", l) }
func (f *fakeCommandBuffer) EndDebugLabel()            { f.rec.Record("EndDebugLabel") }
func (f *fakeCommandBuffer) InsertDebugLabel(l string) { f.rec.Record("InsertDebugLabel", l) }

// fakeAllocator hands out fake command buffers sharing one recorder.
type fakeAllocator struct {
	rec       *trace.Recorder
	allocated []*fakeCommandBuffer
	freed     int
}

func (a *fakeAllocator) AllocateCommandBuffer() (CommandBuffer, error) {
	cb := &fakeCommandBuffer{rec: a.rec}
	a.allocated = append(a.allocated, cb)
	return cb, nil
}

func (a *fakeAllocator) FreeCommandBuffer(CommandBuffer) { a.freed++ }

// fakeDevice hands out host staging buffers and remembers the ones it gets
// back.
type fakeDevice struct {
	features rhi.Features
	returned []*rhi.Buffer
	updates  int
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

type harness struct {
	rec   *trace.Recorder
	dev   *fakeDevice
	alloc *fakeAllocator
	cl    *CommandList
}

func newHarness(t *testing.T, features rhi.Features) *harness {
	t.Helper()
	h := &harness{rec: trace.New(), dev: &fakeDevice{features: features}}
	h.alloc = &fakeAllocator{rec: h.rec}
	cl, err := NewCommandList(h.dev, WithAllocator(h.alloc))
	if err != nil {
		t.Fatalf("NewCommandList: %v", err)
	}
	h.cl = cl
	return h
}

// cb returns the command buffer of the latest recording.
func (h *harness) cb() *fakeCommandBuffer {
	return h.alloc.allocated[len(h.alloc.allocated)-1]
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

var red = gputypes.Color{R: 1, A: 1}
