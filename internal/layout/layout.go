// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layout tracks the native image layout of every texture subresource
// and derives the pipeline barrier needed to move a subresource range from
// one layout to another.
//
// The barrier table is closed: a transition between two layouts that the
// table does not map is a tracking bug and panics. An incorrect layout
// assumption is undefined behavior on the GPU, so it is never silently
// defaulted.
package layout

import "fmt"

// Layout is the GPU-visible access mode of one texture subresource.
type Layout uint8

const (
	// Undefined is the layout of an image whose contents may be discarded.
	Undefined Layout = iota
	// Preinitialized is the layout of a freshly created image.
	Preinitialized
	// General allows any access; used for storage images.
	General
	// ColorAttachment is the layout of a color render target.
	ColorAttachment
	// DepthStencilAttachment is the layout of a depth/stencil render target.
	DepthStencilAttachment
	// ShaderReadOnly is the layout of a sampled image.
	ShaderReadOnly
	// TransferSrc is the layout of a copy source.
	TransferSrc
	// TransferDst is the layout of a copy destination.
	TransferDst
	// PresentSrc is the layout of a swapchain image handed to the presenter.
	PresentSrc
)

var layoutNames = [...]string{
	Undefined:              "Undefined",
	Preinitialized:         "Preinitialized",
	General:                "General",
	ColorAttachment:        "ColorAttachment",
	DepthStencilAttachment: "DepthStencilAttachment",
	ShaderReadOnly:         "ShaderReadOnly",
	TransferSrc:            "TransferSrc",
	TransferDst:            "TransferDst",
	PresentSrc:             "PresentSrc",
}

// String returns the layout name.
func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// Stage is a set of pipeline stages.
type Stage uint32

// Pipeline stages.
const (
	StageTopOfPipe Stage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
)

// Access is a set of memory access types.
type Access uint32

// Memory access types. AccessNone is the empty set.
const (
	AccessNone Access = 0

	AccessIndirectCommandRead Access = 1 << (iota - 1)
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostWrite
	AccessMemoryRead
)

// Aspect selects the image planes a barrier applies to.
type Aspect uint8

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// side is one half of a barrier: what must finish, or what must wait.
type side struct {
	stage  Stage
	access Access
}

// Barrier is one image memory barrier for a subresource range.
type Barrier struct {
	Old, New  Layout
	SrcStage  Stage
	DstStage  Stage
	SrcAccess Access
	DstAccess Access
	Aspect    Aspect
	Range     Range
}

// Masks returns the source and destination stage/access masks for a
// transition from old to new. It panics if the pair is not mapped.
func Masks(old, new Layout) (srcStage Stage, srcAccess Access, dstStage Stage, dstAccess Access) {
	src := srcSide(old, new)
	dst := dstSide(old, new)
	return src.stage, src.access, dst.stage, dst.access
}

// srcSide describes the work that must complete before leaving old.
func srcSide(old, new Layout) side {
	switch old {
	case Undefined, Preinitialized:
		return side{StageTopOfPipe, AccessNone}
	case General:
		switch new {
		case TransferSrc, TransferDst:
			return side{StageComputeShader, AccessShaderWrite}
		case ShaderReadOnly:
			return srcSide(TransferSrc, new)
		case ColorAttachment, DepthStencilAttachment:
			return srcSide(new, new)
		}
	case TransferSrc:
		return side{StageTransfer, AccessTransferRead}
	case TransferDst:
		return side{StageTransfer, AccessTransferWrite}
	case ShaderReadOnly:
		return side{StageFragmentShader, AccessShaderRead}
	case ColorAttachment:
		return side{StageColorAttachmentOutput, AccessColorAttachmentWrite}
	case DepthStencilAttachment:
		return side{StageLateFragmentTests, AccessDepthStencilWrite}
	case PresentSrc:
		return side{StageBottomOfPipe, AccessMemoryRead}
	}
	panic(fmt.Sprintf("layout: invalid old image layout transition (%v -> %v)", old, new))
}

// dstSide describes the work that must wait for the image to reach new.
func dstSide(old, new Layout) side {
	switch new {
	case General:
		switch old {
		case Preinitialized, ShaderReadOnly:
			return side{StageComputeShader, AccessShaderRead}
		case TransferSrc, TransferDst, ColorAttachment, DepthStencilAttachment:
			return dstSide(old, old)
		}
	case TransferSrc:
		return side{StageTransfer, AccessTransferRead}
	case TransferDst:
		return side{StageTransfer, AccessTransferWrite}
	case ShaderReadOnly:
		return side{StageFragmentShader, AccessShaderRead}
	case ColorAttachment:
		return side{StageColorAttachmentOutput, AccessColorAttachmentWrite}
	case DepthStencilAttachment:
		return side{StageLateFragmentTests, AccessDepthStencilWrite}
	case PresentSrc:
		return side{StageBottomOfPipe, AccessMemoryRead}
	}
	panic(fmt.Sprintf("layout: invalid new image layout transition (%v -> %v)", old, new))
}
