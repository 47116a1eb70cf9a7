package vulkan

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/format"
	"github.com/gogpu/rhi/internal/layout"
	"github.com/gogpu/rhi/internal/shader"
)

// ErrUnsupported is reported by End of a HAL command buffer that recorded
// an operation HAL cannot express.
var ErrUnsupported = errors.New("vulkan: operation not supported by HAL command buffer")

// HALAllocator allocates command buffers that record into HAL command
// encoders. Image layouts are forwarded to HAL as texture usage
// transitions.
type HALAllocator struct {
	dev   hal.Device
	queue hal.Queue

	kernel *copyKernel
}

var _ CommandBufferAllocator = (*HALAllocator)(nil)

// NewHALAllocator returns an allocator over dev. queue uploads the
// parameters of unaligned buffer copies.
func NewHALAllocator(dev hal.Device, queue hal.Queue) (*HALAllocator, error) {
	if dev == nil || queue == nil {
		return nil, fmt.Errorf("vulkan: HAL allocator needs a device and a queue: %w", rhi.ErrInvalidDescriptor)
	}
	return &HALAllocator{dev: dev, queue: queue}, nil
}

// AllocateCommandBuffer creates a command buffer with its own encoder.
func (a *HALAllocator) AllocateCommandBuffer() (CommandBuffer, error) {
	enc, err := a.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rhi command list"})
	if err != nil {
		return nil, fmt.Errorf("vulkan: create command encoder: %w", err)
	}
	return &HALCommandBuffer{alloc: a, enc: enc}, nil
}

// FreeCommandBuffer destroys a command buffer made by this allocator.
func (a *HALAllocator) FreeCommandBuffer(cb CommandBuffer) {
	if h, ok := cb.(*HALCommandBuffer); ok {
		h.destroy()
	}
}

// Destroy releases the copy kernel. Command buffers must be freed first.
func (a *HALAllocator) Destroy() {
	if a.kernel != nil {
		a.kernel.Destroy()
		a.kernel = nil
	}
}

func (a *HALAllocator) loadKernel() (*copyKernel, error) {
	if a.kernel == nil {
		k, err := newCopyKernel(a.dev)
		if err != nil {
			return nil, err
		}
		a.kernel = k
	}
	return a.kernel, nil
}

type boundGroup struct {
	group   hal.BindGroup
	offsets []uint32
}

type boundVertex struct {
	buf    hal.Buffer
	offset uint64
}

type boundIndex struct {
	buf    hal.Buffer
	format gputypes.IndexFormat
	offset uint64
}

// HALCommandBuffer records into a hal.CommandEncoder. Graphics state is
// shadowed and replayed whenever a render pass is restarted, and compute
// passes are opened on the first dispatch and closed by the next command
// that needs the bare encoder.
type HALCommandBuffer struct {
	alloc *HALAllocator
	enc   hal.CommandEncoder

	recording bool
	finished  hal.CommandBuffer
	err       error

	render  hal.RenderPassEncoder
	compute hal.ComputePassEncoder
	pass    RenderPass

	graphics       *rhi.Pipeline
	computePL      *rhi.Pipeline
	computeDirty   bool
	graphicsGroups []boundGroup
	computeGroups  []boundGroup
	vertex         []boundVertex
	index          *boundIndex
	viewport       *rhi.Viewport
	scissor        *rhi.Rect

	// transient objects of the recording, destroyed once the buffer is
	// reset after completion.
	transientBuffers []hal.Buffer
	transientGroups  []hal.BindGroup
}

var _ CommandBuffer = (*HALCommandBuffer)(nil)

// HAL returns the finished native command buffer, or nil before End.
func (c *HALCommandBuffer) HAL() hal.CommandBuffer { return c.finished }

func (c *HALCommandBuffer) Begin() error {
	c.resetState()
	if err := c.enc.BeginEncoding("rhi command list"); err != nil {
		return err
	}
	c.recording = true
	return nil
}

func (c *HALCommandBuffer) End() error {
	c.endCompute()
	if c.render != nil {
		c.render.End()
		c.render = nil
	}
	cb, err := c.enc.EndEncoding()
	c.recording = false
	if err != nil {
		return err
	}
	c.finished = cb
	return c.err
}

func (c *HALCommandBuffer) Reset() error {
	if c.recording {
		c.enc.DiscardEncoding()
		c.recording = false
	}
	c.resetState()
	return nil
}

// resetState returns the finished buffer to the encoder and drops
// everything the last recording created or bound.
func (c *HALCommandBuffer) resetState() {
	if c.finished != nil {
		c.enc.ResetAll([]hal.CommandBuffer{c.finished})
		c.finished = nil
	}
	c.releaseTransients()
	c.err = nil
	c.render, c.compute = nil, nil
	c.pass = RenderPass{}
	c.graphics, c.computePL, c.computeDirty = nil, nil, false
	c.graphicsGroups, c.computeGroups = c.graphicsGroups[:0], c.computeGroups[:0]
	c.vertex = c.vertex[:0]
	c.index, c.viewport, c.scissor = nil, nil, nil
}

func (c *HALCommandBuffer) releaseTransients() {
	dev := c.alloc.dev
	for _, g := range c.transientGroups {
		dev.DestroyBindGroup(g)
	}
	for _, b := range c.transientBuffers {
		dev.DestroyBuffer(b)
	}
	clear(c.transientGroups)
	clear(c.transientBuffers)
	c.transientGroups, c.transientBuffers = c.transientGroups[:0], c.transientBuffers[:0]
}

func (c *HALCommandBuffer) destroy() {
	if c.recording {
		c.enc.DiscardEncoding()
		c.recording = false
	}
	if c.finished != nil {
		c.alloc.dev.FreeCommandBuffer(c.finished)
		c.finished = nil
	}
	c.releaseTransients()
	c.enc.Destroy()
}

// fail records the first unsupported operation; End reports it.
func (c *HALCommandBuffer) fail(op string) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: %w", op, ErrUnsupported)
	}
}

func (c *HALCommandBuffer) endCompute() {
	if c.compute != nil {
		c.compute.End()
		c.compute = nil
	}
}

func (c *HALCommandBuffer) ensureCompute() hal.ComputePassEncoder {
	if c.compute == nil {
		c.compute = c.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "rhi compute"})
		c.computeDirty = true
	}
	if c.computeDirty {
		if c.computePL != nil {
			c.compute.SetPipeline(c.computePL.HALCompute())
		}
		for i, g := range c.computeGroups {
			if g.group != nil {
				c.compute.SetBindGroup(uint32(i), g.group, g.offsets)
			}
		}
		c.computeDirty = false
	}
	return c.compute
}

func loadOp(op LoadOp) gputypes.LoadOp {
	if op == LoadOpClear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

func (c *HALCommandBuffer) BeginRenderPass(rp RenderPass) {
	c.endCompute()
	c.pass = rp
	c.openRenderPass(rp)
}

func (c *HALCommandBuffer) openRenderPass(rp RenderPass) {
	fb := rp.Framebuffer
	desc := &hal.RenderPassDescriptor{
		Label:            "rhi render pass",
		ColorAttachments: make([]hal.RenderPassColorAttachment, len(fb.ColorTargets())),
	}
	for i, a := range fb.ColorTargets() {
		load := AttachmentLoad{}
		if i < len(rp.Color) {
			load = rp.Color[i]
		}
		desc.ColorAttachments[i] = hal.RenderPassColorAttachment{
			View:       a.HAL(),
			LoadOp:     loadOp(load.Op),
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: load.Color,
		}
	}
	if d := fb.DepthTarget(); d != nil {
		ds := &hal.RenderPassDepthStencilAttachment{
			View:            d.HAL(),
			DepthLoadOp:     loadOp(rp.Depth.Op),
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: rp.Depth.Depth,
		}
		if d.Target.Format().HasStencil() {
			ds.StencilLoadOp = loadOp(rp.Depth.Op)
			ds.StencilStoreOp = gputypes.StoreOpStore
			ds.StencilClearValue = uint32(rp.Depth.Stencil)
		}
		desc.DepthStencilAttachment = ds
	}
	c.render = c.enc.BeginRenderPass(desc)
	c.replayGraphics()
}

// replayGraphics applies the shadowed graphics state to a new pass.
func (c *HALCommandBuffer) replayGraphics() {
	r := c.render
	if c.graphics != nil {
		c.applyPipeline(c.graphics)
	}
	for i, g := range c.graphicsGroups {
		if g.group != nil {
			r.SetBindGroup(uint32(i), g.group, g.offsets)
		}
	}
	for i, v := range c.vertex {
		if v.buf != nil {
			r.SetVertexBuffer(uint32(i), v.buf, v.offset)
		}
	}
	if c.index != nil {
		r.SetIndexBuffer(c.index.buf, c.index.format, c.index.offset)
	}
	if vp := c.viewport; vp != nil {
		r.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
	if s := c.scissor; s != nil {
		r.SetScissorRect(s.X, s.Y, s.Width, s.Height)
	}
}

func (c *HALCommandBuffer) applyPipeline(p *rhi.Pipeline) {
	st := p.State()
	c.render.SetPipeline(p.HALRender())
	c.render.SetBlendConstant(&st.BlendConstant)
	c.render.SetStencilReference(st.StencilReference)
}

func (c *HALCommandBuffer) EndRenderPass() {
	if c.render != nil {
		c.render.End()
		c.render = nil
	}
}

// ClearAttachments restarts the open pass with the cleared attachments
// loaded as clears and every other attachment loaded. HAL passes clear
// whole attachments, so rect is not honored.
func (c *HALCommandBuffer) ClearAttachments(clears []ClearAttachment, _ rhi.Rect) {
	if c.render == nil {
		return
	}
	rp := c.pass
	rp.Color = make([]AttachmentLoad, len(rp.Framebuffer.ColorTargets()))
	rp.Depth = AttachmentLoad{}
	for _, cl := range clears {
		if cl.Aspect&(layout.AspectDepth|layout.AspectStencil) != 0 {
			rp.Depth = AttachmentLoad{Op: LoadOpClear, Depth: cl.Depth, Stencil: cl.Stencil}
			continue
		}
		if int(cl.Index) < len(rp.Color) {
			rp.Color[cl.Index] = AttachmentLoad{Op: LoadOpClear, Color: cl.Color}
		}
	}
	c.render.End()
	c.pass = rp
	c.openRenderPass(rp)
}

// textureUsage maps an image layout to the HAL usage it stands for.
func textureUsage(l layout.Layout) gputypes.TextureUsage {
	switch l {
	case layout.General:
		return gputypes.TextureUsageStorageBinding
	case layout.ColorAttachment, layout.DepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case layout.ShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case layout.TransferSrc:
		return gputypes.TextureUsageCopySrc
	case layout.TransferDst:
		return gputypes.TextureUsageCopyDst
	}
	return gputypes.TextureUsageNone
}

func textureAspect(a layout.Aspect) gputypes.TextureAspect {
	switch a {
	case layout.AspectDepth:
		return gputypes.TextureAspectDepthOnly
	case layout.AspectStencil:
		return gputypes.TextureAspectStencilOnly
	}
	return gputypes.TextureAspectAll
}

// PipelineBarrier forwards image transitions. Memory and execution
// dependencies are tracked by HAL itself.
func (c *HALCommandBuffer) PipelineBarrier(_, _ layout.Stage, _ []MemoryBarrier, images []ImageBarrier) {
	if len(images) == 0 {
		return
	}
	c.endCompute()
	barriers := make([]hal.TextureBarrier, 0, len(images))
	for _, b := range images {
		if b.Texture.HAL() == nil {
			continue
		}
		barriers = append(barriers, hal.TextureBarrier{
			Texture: b.Texture.HAL(),
			Range: hal.TextureRange{
				Aspect:          textureAspect(b.Aspect),
				BaseMipLevel:    b.Range.BaseMip,
				MipLevelCount:   b.Range.MipCount,
				BaseArrayLayer:  b.Range.BaseLayer,
				ArrayLayerCount: b.Range.LayerCount,
			},
			Usage: hal.TextureUsageTransition{
				OldUsage: textureUsage(b.Old),
				NewUsage: textureUsage(b.New),
			},
		})
	}
	if len(barriers) > 0 {
		c.enc.TransitionTextures(barriers)
	}
}

func (c *HALCommandBuffer) BindPipeline(p *rhi.Pipeline) {
	if p.IsCompute() {
		c.computePL = p
		c.computeGroups = c.computeGroups[:0]
		c.computeDirty = true
		return
	}
	c.graphics = p
	c.graphicsGroups = c.graphicsGroups[:0]
	if c.render != nil {
		c.applyPipeline(p)
	}
}

func (c *HALCommandBuffer) BindResourceSets(p *rhi.Pipeline, first uint32, sets []*rhi.ResourceSet, dynamicOffsets []uint32) {
	groups := &c.graphicsGroups
	if p.IsCompute() {
		groups = &c.computeGroups
	}
	if need := int(first) + len(sets); len(*groups) < need {
		*groups = append(*groups, make([]boundGroup, need-len(*groups))...)
	}
	for i, s := range sets {
		n := s.Layout().DynamicBufferCount()
		g := boundGroup{group: s.HAL(), offsets: append([]uint32(nil), dynamicOffsets[:n]...)}
		dynamicOffsets = dynamicOffsets[n:]
		slot := first + uint32(i)
		(*groups)[slot] = g
		switch {
		case p.IsCompute():
			c.computeDirty = true
		case c.render != nil && g.group != nil:
			c.render.SetBindGroup(slot, g.group, g.offsets)
		}
	}
}

func (c *HALCommandBuffer) BindVertexBuffers(first uint32, bufs []*rhi.Buffer, offsets []uint64) {
	if need := int(first) + len(bufs); len(c.vertex) < need {
		c.vertex = append(c.vertex, make([]boundVertex, need-len(c.vertex))...)
	}
	for i, b := range bufs {
		v := boundVertex{buf: b.HAL(), offset: offsets[i]}
		c.vertex[int(first)+i] = v
		if c.render != nil && v.buf != nil {
			c.render.SetVertexBuffer(first+uint32(i), v.buf, v.offset)
		}
	}
}

func (c *HALCommandBuffer) BindIndexBuffer(buf *rhi.Buffer, offset uint64, format gputypes.IndexFormat) {
	c.index = &boundIndex{buf: buf.HAL(), format: format, offset: offset}
	if c.render != nil {
		c.render.SetIndexBuffer(c.index.buf, format, offset)
	}
}

// SetViewports keeps the first viewport; HAL passes have one.
func (c *HALCommandBuffer) SetViewports(first uint32, vps []rhi.Viewport) {
	if first != 0 || len(vps) == 0 {
		return
	}
	vp := vps[0]
	c.viewport = &vp
	if c.render != nil {
		c.render.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
}

func (c *HALCommandBuffer) SetScissors(first uint32, rects []rhi.Rect) {
	if first != 0 || len(rects) == 0 {
		return
	}
	r := rects[0]
	c.scissor = &r
	if c.render != nil {
		c.render.SetScissorRect(r.X, r.Y, r.Width, r.Height)
	}
}

func (c *HALCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.render.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *HALCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.render.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// DrawIndirect issues one HAL indirect draw per argument record.
func (c *HALCommandBuffer) DrawIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) {
	for i := range uint64(drawCount) {
		c.render.DrawIndirect(buf.HAL(), offset+i*uint64(stride))
	}
}

func (c *HALCommandBuffer) DrawIndexedIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) {
	for i := range uint64(drawCount) {
		c.render.DrawIndexedIndirect(buf.HAL(), offset+i*uint64(stride))
	}
}

func (c *HALCommandBuffer) Dispatch(x, y, z uint32) {
	c.ensureCompute().Dispatch(x, y, z)
}

func (c *HALCommandBuffer) DispatchIndirect(buf *rhi.Buffer, offset uint64) {
	c.ensureCompute().DispatchIndirect(buf.HAL(), offset)
}

// CopyBuffer copies 4-byte aligned regions natively and runs the copy
// kernel for the rest. Regions are recorded in order.
func (c *HALCommandBuffer) CopyBuffer(src, dst *rhi.Buffer, regions []BufferCopy) {
	var aligned []hal.BufferCopy
	flush := func() {
		if len(aligned) > 0 {
			c.endCompute()
			c.enc.CopyBufferToBuffer(src.HAL(), dst.HAL(), aligned)
			aligned = nil
		}
	}
	for _, r := range regions {
		if r.SrcOffset%4 == 0 && r.DstOffset%4 == 0 && r.Size%4 == 0 {
			aligned = append(aligned, hal.BufferCopy{SrcOffset: r.SrcOffset, DstOffset: r.DstOffset, Size: r.Size})
			continue
		}
		flush()
		if err := c.copyUnaligned(src, dst, r); err != nil {
			if c.err == nil {
				c.err = err
			}
			return
		}
	}
	flush()
}

func (c *HALCommandBuffer) copyUnaligned(src, dst *rhi.Buffer, r BufferCopy) error {
	// The kernel addresses bytes with 32-bit offsets.
	if r.SrcOffset+r.Size > math.MaxUint32 || r.DstOffset+r.Size > math.MaxUint32 {
		return fmt.Errorf("vulkan: unaligned copy of %d bytes at %d -> %d beyond 4 GiB: %w",
			r.Size, r.SrcOffset, r.DstOffset, rhi.ErrInvalidCopy)
	}
	k, err := c.alloc.loadKernel()
	if err != nil {
		return err
	}
	dev := c.alloc.dev
	params, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "rhi copy params",
		Size:  shader.CopyParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("vulkan: create copy params: %w", err)
	}
	c.transientBuffers = append(c.transientBuffers, params)
	p := shader.CopyParams{SrcOffset: uint32(r.SrcOffset), DstOffset: uint32(r.DstOffset), Size: uint32(r.Size)}
	if err := c.alloc.queue.WriteBuffer(params, 0, p.Bytes()); err != nil {
		return fmt.Errorf("vulkan: write copy params: %w", err)
	}
	group, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "rhi copy_buffer",
		Layout: k.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: shader.CopyBindingSrc, Resource: gputypes.BufferBinding{Buffer: handle(src.HAL()), Size: src.Size()}},
			{Binding: shader.CopyBindingDst, Resource: gputypes.BufferBinding{Buffer: handle(dst.HAL()), Size: dst.Size()}},
			{Binding: shader.CopyBindingParams, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Size: shader.CopyParamsSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("vulkan: create copy bind group: %w", err)
	}
	c.transientGroups = append(c.transientGroups, group)

	rhi.Logger().Debug("vulkan: unaligned buffer copy through kernel",
		"src_offset", r.SrcOffset, "dst_offset", r.DstOffset, "size", r.Size)
	pass := c.ensureCompute()
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(1, 1, 1)
	c.computeDirty = true
	return nil
}

func handle(b hal.Buffer) uintptr {
	if b == nil {
		return 0
	}
	return b.NativeHandle()
}

func imageCopyTexture(t *rhi.Texture, s ImageSubresource, o Offset3D) hal.ImageCopyTexture {
	return hal.ImageCopyTexture{
		Texture:  t.HAL(),
		MipLevel: s.MipLevel,
		Origin:   hal.Origin3D{X: o.X, Y: o.Y, Z: o.Z + s.BaseArrayLayer},
		Aspect:   textureAspect(s.Aspect),
	}
}

func extent(e Extent3D, layers uint32) hal.Extent3D {
	return hal.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: max(e.Depth, layers)}
}

func (c *HALCommandBuffer) CopyImage(src, dst *rhi.Texture, regions []ImageCopy) {
	c.endCompute()
	copies := make([]hal.TextureCopy, len(regions))
	for i, r := range regions {
		copies[i] = hal.TextureCopy{
			SrcBase: imageCopyTexture(src, r.SrcSubresource, r.SrcOffset),
			DstBase: imageCopyTexture(dst, r.DstSubresource, r.DstOffset),
			Size:    extent(r.Extent, r.SrcSubresource.LayerCount),
		}
	}
	c.enc.CopyTextureToTexture(src.HAL(), dst.HAL(), copies)
}

func bufferTextureCopies(t *rhi.Texture, regions []BufferImageCopy) []hal.BufferTextureCopy {
	f := t.Format()
	copies := make([]hal.BufferTextureCopy, len(regions))
	for i, r := range regions {
		copies[i] = hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{
				Offset:       r.BufferOffset,
				BytesPerRow:  format.RowPitch(r.BufferRowLength, f),
				RowsPerImage: format.NumRows(r.BufferImageHeight, f),
			},
			TextureBase: imageCopyTexture(t, r.Subresource, r.ImageOffset),
			Size:        extent(r.ImageExtent, r.Subresource.LayerCount),
		}
	}
	return copies
}

func (c *HALCommandBuffer) CopyBufferToImage(src *rhi.Buffer, dst *rhi.Texture, regions []BufferImageCopy) {
	c.endCompute()
	c.enc.CopyBufferToTexture(src.HAL(), dst.HAL(), bufferTextureCopies(dst, regions))
}

func (c *HALCommandBuffer) CopyImageToBuffer(src *rhi.Texture, dst *rhi.Buffer, regions []BufferImageCopy) {
	c.endCompute()
	c.enc.CopyTextureToBuffer(src.HAL(), dst.HAL(), bufferTextureCopies(src, regions))
}

// BlitImage has no HAL equivalent.
func (c *HALCommandBuffer) BlitImage(_, _ *rhi.Texture, _ []ImageBlit) {
	c.fail("blit image")
}

// ResolveImage resolves through an empty render pass that loads src and
// names dst as its resolve target.
func (c *HALCommandBuffer) ResolveImage(src, dst *rhi.Texture, _ ImageResolve) {
	c.endCompute()
	pass := c.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "rhi resolve",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          src.DefaultView(),
			ResolveTarget: dst.DefaultView(),
			LoadOp:        gputypes.LoadOpLoad,
			StoreOp:       gputypes.StoreOpStore,
		}},
	})
	pass.End()
}

var debugLabelsOnce sync.Once

// Debug labels have no HAL equivalent and are dropped.
func (c *HALCommandBuffer) BeginDebugLabel(string)  { warnDebugLabels() }
func (c *HALCommandBuffer) EndDebugLabel()          {}
func (c *HALCommandBuffer) InsertDebugLabel(string) { warnDebugLabels() }

func warnDebugLabels() {
	debugLabelsOnce.Do(func() {
		rhi.Logger().Warn("vulkan: HAL command buffers drop debug labels")
	})
}
