// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader holds the compute kernels command lists run on behalf of
// operations the native copy path cannot express, compiled once per process
// with naga.
package shader

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/msl"
)

//go:embed shaders/copy_buffer.wgsl
var copyBufferWGSL string

// CopyBufferEntryPoint is the WGSL entry point of the copy kernel.
const CopyBufferEntryPoint = "copy_buffer"

// Bindings of the copy kernel, all in group 0.
const (
	CopyBindingSrc    = 0
	CopyBindingDst    = 1
	CopyBindingParams = 2
)

// CopyParams is the uniform block of the copy kernel.
// Must match CopyParams in copy_buffer.wgsl.
type CopyParams struct {
	SrcOffset uint32
	DstOffset uint32
	Size      uint32
	_         uint32
}

// CopyParamsSize is the size of the encoded uniform block.
const CopyParamsSize = 16

// Bytes encodes p as the kernel reads it.
func (p CopyParams) Bytes() []byte {
	b := make([]byte, CopyParamsSize)
	binary.LittleEndian.PutUint32(b[0:], p.SrcOffset)
	binary.LittleEndian.PutUint32(b[4:], p.DstOffset)
	binary.LittleEndian.PutUint32(b[8:], p.Size)
	return b
}

// CopyBufferWGSL returns the kernel source.
func CopyBufferWGSL() string { return copyBufferWGSL }

var copySPIRV = sync.OnceValues(func() ([]uint32, error) {
	code, err := naga.Compile(copyBufferWGSL)
	if err != nil {
		return nil, fmt.Errorf("shader: compile copy kernel to SPIR-V: %w", err)
	}
	return Words(code), nil
})

// CopyBufferSPIRV returns the kernel as SPIR-V words.
func CopyBufferSPIRV() ([]uint32, error) { return copySPIRV() }

// MSL is a kernel translated to Metal Shading Language.
type MSL struct {
	Source string

	// EntryPoint is the translated name of the kernel function.
	EntryPoint string
}

var copyMSL = sync.OnceValues(func() (MSL, error) {
	ast, err := naga.Parse(copyBufferWGSL)
	if err != nil {
		return MSL{}, fmt.Errorf("shader: parse copy kernel: %w", err)
	}
	module, err := naga.LowerWithSource(ast, copyBufferWGSL)
	if err != nil {
		return MSL{}, fmt.Errorf("shader: lower copy kernel: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return MSL{}, fmt.Errorf("shader: validate copy kernel: %w", err)
	}
	if len(verrs) > 0 {
		return MSL{}, fmt.Errorf("shader: copy kernel invalid: %w", verrs[0])
	}
	src, info, err := msl.Compile(module, msl.DefaultOptions())
	if err != nil {
		return MSL{}, fmt.Errorf("shader: compile copy kernel to MSL: %w", err)
	}
	entry := info.EntryPointNames[CopyBufferEntryPoint]
	if entry == "" {
		entry = CopyBufferEntryPoint
	}
	return MSL{Source: src, EntryPoint: entry}, nil
})

// CopyBufferMSL returns the kernel translated to MSL.
func CopyBufferMSL() (MSL, error) { return copyMSL() }

// Words converts little-endian SPIR-V bytes to words. Trailing bytes that
// do not fill a word are dropped.
func Words(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}
