package metal

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/binding"
	"github.com/gogpu/rhi/internal/cmdbase"
)

// preDraw makes sure a render encoder is open and applies pending draw
// state to it. It returns false when the pass was skipped because the
// swapchain had no drawable; the draw is dropped.
func (cl *CommandList) preDraw(op string, indexed bool) (bool, error) {
	if err := cl.PreDraw(op, indexed); err != nil {
		return false, err
	}
	ok, err := cl.enc.EnsureRenderPassActive()
	if err != nil || !ok {
		return false, err
	}
	p := cl.GraphicsPipeline()
	cl.flushViewports(p)
	cl.applyGraphicsPipeline(p)
	cl.flushSets(binding.TargetOf(p, cl.BindingModel()), cl.graphicsSets, renderBinder{cl.render})
	cl.flushVertexBuffers(p)
	return true, nil
}

// Draw records a non-indexed draw.
func (cl *CommandList) Draw(vertexCount, instanceCount, vertexStart, instanceStart uint32) error {
	ok, err := cl.preDraw("draw", false)
	if ok {
		cl.render.DrawPrimitives(cl.GraphicsPipeline().Topology(), vertexStart, vertexCount, instanceCount, instanceStart)
	}
	return err
}

func indexSize(f gputypes.IndexFormat) uint64 {
	if f == gputypes.IndexFormatUint16 {
		return 2
	}
	return 4
}

// DrawIndexed records an indexed draw. The first index is folded into the
// index buffer offset.
func (cl *CommandList) DrawIndexed(indexCount, instanceCount, indexStart uint32, vertexOffset int32, instanceStart uint32) error {
	ok, err := cl.preDraw("draw indexed", true)
	if ok {
		off := cl.indexOffset + indexSize(cl.indexFormat)*uint64(indexStart)
		cl.render.DrawIndexedPrimitives(cl.GraphicsPipeline().Topology(), indexCount, cl.indexFormat,
			cl.indexBuf, off, instanceCount, vertexOffset, instanceStart)
	}
	return err
}

// DrawIndirect records drawCount draws, one native call each, with
// arguments read from buf every stride bytes.
func (cl *CommandList) DrawIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) error {
	if err := cl.checkIndirect("draw indirect", buf, offset, cmdbase.DrawIndirectSize, drawCount, stride); err != nil {
		return err
	}
	ok, err := cl.preDraw("draw indirect", false)
	if !ok {
		return err
	}
	cl.track(buf)
	topo := cl.GraphicsPipeline().Topology()
	for i := range uint64(drawCount) {
		cl.render.DrawPrimitivesIndirect(topo, buf, offset+i*uint64(stride))
	}
	return nil
}

// DrawIndexedIndirect records drawCount indexed draws with arguments read
// from buf.
func (cl *CommandList) DrawIndexedIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) error {
	if err := cl.checkIndirect("draw indexed indirect", buf, offset, cmdbase.DrawIndexedIndirectSize, drawCount, stride); err != nil {
		return err
	}
	ok, err := cl.preDraw("draw indexed indirect", true)
	if !ok {
		return err
	}
	cl.track(buf)
	topo := cl.GraphicsPipeline().Topology()
	for i := range uint64(drawCount) {
		cl.render.DrawIndexedPrimitivesIndirect(topo, cl.indexFormat, cl.indexBuf, cl.indexOffset, buf, offset+i*uint64(stride))
	}
	return nil
}

// preDispatch opens a compute encoder and applies the pipeline and sets
// it lacks.
func (cl *CommandList) preDispatch(op string) (*rhi.Pipeline, error) {
	if err := cl.PreDispatch(op); err != nil {
		return nil, err
	}
	if err := cl.enc.EnsureComputeEncoder(); err != nil {
		return nil, err
	}
	p := cl.ComputePipeline()
	if p != cl.lastCompute {
		cl.compute.SetComputePipelineState(p)
		cl.lastCompute = p
	}
	model := p.BindingModel().Resolve(cl.Config().BindingModel)
	cl.flushSets(binding.TargetOf(p, model), cl.computeSets, computeBinder{cl.compute})
	return p, nil
}

func threadgroupSize(p *rhi.Pipeline) Size {
	g := p.ThreadGroupSize()
	return Size{g[0], g[1], g[2]}
}

// Dispatch records a compute dispatch.
func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	p, err := cl.preDispatch("dispatch")
	if err != nil {
		return err
	}
	cl.compute.DispatchThreadgroups(Size{groupsX, groupsY, groupsZ}, threadgroupSize(p))
	return nil
}

// DispatchIndirect records a dispatch with arguments read from buf.
func (cl *CommandList) DispatchIndirect(buf *rhi.Buffer, offset uint64) error {
	if err := cl.checkIndirect("dispatch indirect", buf, offset, cmdbase.DispatchIndirectSize, 1, 0); err != nil {
		return err
	}
	p, err := cl.preDispatch("dispatch indirect")
	if err != nil {
		return err
	}
	cl.track(buf)
	cl.compute.DispatchThreadgroupsIndirect(buf, offset, threadgroupSize(p))
	return nil
}

func (cl *CommandList) checkIndirect(op string, buf *rhi.Buffer, offset, argSize uint64, drawCount, stride uint32) error {
	if err := cl.Check(op); err != nil {
		return err
	}
	return cl.CheckIndirect(op, buf, offset, argSize, drawCount, stride)
}
