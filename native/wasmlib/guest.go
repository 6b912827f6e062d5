package wasmlib

import (
	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/internal/wasmgen"
)

// Guest memory layout. Address 0 stays unused so that 0 is null.
const (
	// outSlot is where the host asks create_subobject to write its result,
	// standing in for the caller's stack slot in the C ABI.
	outSlot = 16

	// heapBase is the first context block.
	heapBase = 1024

	// blockStride is the allocator's slot size; a context needs BlockSize bytes.
	blockStride = 32

	pageSize = 65536
)

// Guest global indices.
const (
	globalHeapNext = 0
	globalFreeHead = 1
)

// Guest function type indices.
const (
	typeVoidI32 = iota // (i32) -> ()
	typeI32Void        // () -> i32
	typeI32I32         // (i32) -> i32
	typeSubobject      // (i32, i32, i32) -> i32
)

const importSubobjectCreated = 0

// buildGuest assembles the context library for a memory of the given size.
func buildGuest(pages uint32) []byte {
	limit := int32(pages * pageSize)
	letters := int32(ctxbind.MaxOffset)

	m := &wasmgen.Module{
		Types: []wasmgen.FuncType{
			typeVoidI32:   {Params: []wasmgen.ValType{wasmgen.I32}},
			typeI32Void:   {Results: []wasmgen.ValType{wasmgen.I32}},
			typeI32I32:    {Params: []wasmgen.ValType{wasmgen.I32}, Results: []wasmgen.ValType{wasmgen.I32}},
			typeSubobject: {Params: []wasmgen.ValType{wasmgen.I32, wasmgen.I32, wasmgen.I32}, Results: []wasmgen.ValType{wasmgen.I32}},
		},
		Imports: []wasmgen.Import{
			importSubobjectCreated: {Module: hostModule, Name: hostCallback, Type: typeVoidI32},
		},
		Memory: &wasmgen.Memory{Min: pages, Max: pages, HasMax: true},
		Globals: []wasmgen.Global{
			globalHeapNext: {Init: heapBase, Mutable: true},
			globalFreeHead: {Init: 0, Mutable: true},
		},
	}

	funcs := []struct {
		name string
		fn   wasmgen.Func
	}{
		{fnInit, wasmgen.Func{Type: typeI32Void, Locals: []wasmgen.ValType{wasmgen.I32, wasmgen.I32}, Body: initContext(limit, letters)}},
		{fnFree, wasmgen.Func{Type: typeVoidI32, Body: freeContext()}},
		{fnIsLower, wasmgen.Func{Type: typeI32I32, Body: firstByteIs('A')}},
		{fnIsUpper, wasmgen.Func{Type: typeI32I32, Body: firstByteIs('a')}},
		{fnToLower, wasmgen.Func{Type: typeVoidI32, Locals: []wasmgen.ValType{wasmgen.I32}, Body: shiftLetters(letters, true)}},
		{fnToUpper, wasmgen.Func{Type: typeVoidI32, Locals: []wasmgen.ValType{wasmgen.I32}, Body: shiftLetters(letters, false)}},
		{fnSubobject, wasmgen.Func{Type: typeSubobject, Body: createSubobject(letters)}},
	}

	for i, f := range funcs {
		m.Funcs = append(m.Funcs, f.fn)
		m.Exports = append(m.Exports, wasmgen.Export{Name: f.name, Kind: wasmgen.KindFunc, Index: m.FuncIndex(i)})
	}
	m.Exports = append(m.Exports, wasmgen.Export{Name: "memory", Kind: wasmgen.KindMemory, Index: 0})

	return m.Encode()
}

// initContext pops a block off the free list or bumps the heap, returning 0
// when the heap is exhausted, then fills it with "A".."Z" and a NUL.
// Locals: 0 = block, 1 = i.
func initContext(limit, letters int32) *wasmgen.Code {
	return wasmgen.NewCode().
		GlobalGet(globalFreeHead).
		LocalTee(0).
		If().
		LocalGet(0).
		I32Load(0).
		GlobalSet(globalFreeHead).
		Else().
		GlobalGet(globalHeapNext).
		I32Const(blockStride).
		I32Add().
		I32Const(limit).
		I32GtU().
		If().
		I32Const(0).
		Return().
		End().
		GlobalGet(globalHeapNext).
		LocalSet(0).
		GlobalGet(globalHeapNext).
		I32Const(blockStride).
		I32Add().
		GlobalSet(globalHeapNext).
		End().
		I32Const(0).
		LocalSet(1).
		Loop().
		LocalGet(0).
		LocalGet(1).
		I32Add().
		LocalGet(1).
		I32Const('A').
		I32Add().
		I32Store8(0).
		LocalGet(1).
		I32Const(1).
		I32Add().
		LocalTee(1).
		I32Const(letters).
		I32LtU().
		BrIf(0).
		End().
		LocalGet(0).
		I32Const(0).
		I32Store8(uint32(letters)).
		LocalGet(0).
		End()
}

// freeContext pushes the block onto the free list. Freeing null is a no-op.
func freeContext() *wasmgen.Code {
	return wasmgen.NewCode().
		LocalGet(0).
		I32Eqz().
		If().
		Return().
		End().
		LocalGet(0).
		GlobalGet(globalFreeHead).
		I32Store(0).
		LocalGet(0).
		GlobalSet(globalFreeHead).
		End()
}

// firstByteIs returns 1 when the block's first byte equals c.
func firstByteIs(c int32) *wasmgen.Code {
	return wasmgen.NewCode().
		LocalGet(0).
		I32Load8U(0).
		I32Const(c).
		I32Eq().
		End()
}

// shiftLetters adds (lower) or subtracts (upper) 32 from every letter byte,
// wrapping like a C char. Locals: 0 = block, 1 = i.
func shiftLetters(letters int32, lower bool) *wasmgen.Code {
	c := wasmgen.NewCode().
		I32Const(0).
		LocalSet(1).
		Loop().
		LocalGet(0).
		LocalGet(1).
		I32Add().
		LocalGet(0).
		LocalGet(1).
		I32Add().
		I32Load8U(0).
		I32Const(' ')
	if lower {
		c.I32Add()
	} else {
		c.I32Sub()
	}
	return c.
		I32Store8(0).
		LocalGet(1).
		I32Const(1).
		I32Add().
		LocalTee(1).
		I32Const(letters).
		I32LtU().
		BrIf(0).
		End().
		End()
}

// createSubobject rejects offsets outside [0, letters] with -1, otherwise
// stores block+offset through the out pointer, notifies the host and returns 0.
// Params: 0 = block, 1 = offset, 2 = out.
func createSubobject(letters int32) *wasmgen.Code {
	return wasmgen.NewCode().
		LocalGet(1).
		I32Const(0).
		I32LtS().
		LocalGet(1).
		I32Const(letters).
		I32GtS().
		I32Or().
		If().
		I32Const(int32(ctxbind.StatusOutOfBounds)).
		Return().
		End().
		LocalGet(2).
		LocalGet(0).
		LocalGet(1).
		I32Add().
		I32Store(0).
		LocalGet(2).
		I32Load(0).
		Call(importSubobjectCreated).
		I32Const(int32(ctxbind.StatusOK)).
		End()
}
