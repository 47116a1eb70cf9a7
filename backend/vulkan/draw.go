package vulkan

import (
	"slices"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/internal/cmdbase"
	"github.com/gogpu/rhi/internal/layout"
)

// preDraw flushes draw state and makes sure a render pass is open. It
// returns false when the pass was skipped because the swapchain had no
// drawable; the draw is dropped.
func (cl *CommandList) preDraw(op string, indexed bool) (bool, error) {
	if err := cl.PreDraw(op, indexed); err != nil {
		return false, err
	}
	cl.flushViewports()
	cl.flushVertexBuffers()
	ok, err := cl.enc.EnsureRenderPassActive()
	if err != nil || !ok {
		return false, err
	}
	cl.flushSets(cl.GraphicsPipeline(), cl.graphicsSets)
	return true, nil
}

// Draw records a non-indexed draw.
func (cl *CommandList) Draw(vertexCount, instanceCount, vertexStart, instanceStart uint32) error {
	ok, err := cl.preDraw("draw", false)
	if ok {
		cl.cb.Draw(vertexCount, instanceCount, vertexStart, instanceStart)
	}
	return err
}

// DrawIndexed records an indexed draw.
func (cl *CommandList) DrawIndexed(indexCount, instanceCount, indexStart uint32, vertexOffset int32, instanceStart uint32) error {
	ok, err := cl.preDraw("draw indexed", true)
	if ok {
		cl.cb.DrawIndexed(indexCount, instanceCount, indexStart, vertexOffset, instanceStart)
	}
	return err
}

// DrawIndirect records drawCount draws with arguments read from buf.
func (cl *CommandList) DrawIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) error {
	if err := cl.checkIndirect("draw indirect", buf, offset, cmdbase.DrawIndirectSize, drawCount, stride); err != nil {
		return err
	}
	ok, err := cl.preDraw("draw indirect", false)
	if ok {
		cl.track(buf)
		cl.cb.DrawIndirect(buf, offset, drawCount, stride)
	}
	return err
}

// DrawIndexedIndirect records drawCount indexed draws with arguments read
// from buf.
func (cl *CommandList) DrawIndexedIndirect(buf *rhi.Buffer, offset uint64, drawCount, stride uint32) error {
	if err := cl.checkIndirect("draw indexed indirect", buf, offset, cmdbase.DrawIndexedIndirectSize, drawCount, stride); err != nil {
		return err
	}
	ok, err := cl.preDraw("draw indexed indirect", true)
	if ok {
		cl.track(buf)
		cl.cb.DrawIndexedIndirect(buf, offset, drawCount, stride)
	}
	return err
}

// preDispatch ends any render pass and moves the textures of the bound
// compute sets to the layouts a compute shader reads and writes them in:
// sampled textures to ShaderReadOnly, storage textures to General.
func (cl *CommandList) preDispatch(op string) error {
	if err := cl.PreDispatch(op); err != nil {
		return err
	}
	if _, err := cl.enc.EnsureNoRenderPass(); err != nil {
		return err
	}
	for i := range cl.computeSets.Len() {
		set := cl.computeSets.Record(i).Set
		if set == nil {
			continue
		}
		for _, v := range set.Views(rhi.KindTextureReadOnly) {
			cl.transition(v.Target(), v.Range(), layout.ShaderReadOnly)
		}
		for _, v := range set.Views(rhi.KindTextureReadWrite) {
			t := v.Target()
			cl.transition(t, v.Range(), layout.General)
			if !slices.Contains(cl.dispatchStorage, t) {
				cl.dispatchStorage = append(cl.dispatchStorage, t)
			}
		}
	}
	cl.flushSets(cl.ComputePipeline(), cl.computeSets)
	return nil
}

// Dispatch records a compute dispatch.
func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	if err := cl.preDispatch("dispatch"); err != nil {
		return err
	}
	cl.cb.Dispatch(groupsX, groupsY, groupsZ)
	return nil
}

// DispatchIndirect records a dispatch with arguments read from buf.
func (cl *CommandList) DispatchIndirect(buf *rhi.Buffer, offset uint64) error {
	if err := cl.checkIndirect("dispatch indirect", buf, offset, cmdbase.DispatchIndirectSize, 1, 0); err != nil {
		return err
	}
	if err := cl.preDispatch("dispatch indirect"); err != nil {
		return err
	}
	cl.track(buf)
	cl.cb.DispatchIndirect(buf, offset)
	return nil
}

func (cl *CommandList) checkIndirect(op string, buf *rhi.Buffer, offset, argSize uint64, drawCount, stride uint32) error {
	if err := cl.Check(op); err != nil {
		return err
	}
	return cl.CheckIndirect(op, buf, offset, argSize, drawCount, stride)
}
