package wasmgen

// Opcodes used by the builder.
const (
	opBlock    byte = 0x02
	opLoop     byte = 0x03
	opIf       byte = 0x04
	opElse     byte = 0x05
	opEnd      byte = 0x0B
	opBr       byte = 0x0C
	opBrIf     byte = 0x0D
	opReturn   byte = 0x0F
	opCall     byte = 0x10
	opDrop     byte = 0x1A
	opLocalGet byte = 0x20
	opLocalSet byte = 0x21
	opLocalTee byte = 0x22
	opGlobGet  byte = 0x23
	opGlobSet  byte = 0x24
	opI32Load  byte = 0x28
	opI32Ld8U  byte = 0x2D
	opI32Store byte = 0x36
	opI32St8   byte = 0x3A
	opI32Const byte = 0x41
	opI32Eqz   byte = 0x45
	opI32Eq    byte = 0x46
	opI32Ne    byte = 0x47
	opI32LtS   byte = 0x48
	opI32LtU   byte = 0x49
	opI32GtS   byte = 0x4A
	opI32GtU   byte = 0x4B
	opI32Add   byte = 0x6A
	opI32Sub   byte = 0x6B
	opI32And   byte = 0x71
	opI32Or    byte = 0x72
)

// BlockVoid is the empty block type.
const BlockVoid byte = 0x40

// Code accumulates a function body. Every method appends one instruction and
// returns the receiver so bodies read top to bottom.
type Code struct {
	w writer
}

// NewCode returns an empty body.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.w.bytes()
}

func (c *Code) op(b byte) *Code {
	c.w.byte(b)
	return c
}

func (c *Code) opIdx(b byte, idx uint32) *Code {
	c.w.byte(b)
	c.w.u32(idx)
	return c
}

func (c *Code) mem(b byte, align, offset uint32) *Code {
	c.w.byte(b)
	c.w.u32(align)
	c.w.u32(offset)
	return c
}

// Block opens a block with no results.
func (c *Code) Block() *Code {
	c.w.byte(opBlock)
	c.w.byte(BlockVoid)
	return c
}

// Loop opens a loop with no results.
func (c *Code) Loop() *Code {
	c.w.byte(opLoop)
	c.w.byte(BlockVoid)
	return c
}

// If opens a conditional with no results.
func (c *Code) If() *Code {
	c.w.byte(opIf)
	c.w.byte(BlockVoid)
	return c
}

func (c *Code) Else() *Code { return c.op(opElse) }
func (c *Code) End() *Code { return c.op(opEnd) }
func (c *Code) Return() *Code { return c.op(opReturn) }
func (c *Code) Drop() *Code { return c.op(opDrop) }

func (c *Code) Br(depth uint32) *Code { return c.opIdx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.opIdx(opBrIf, depth) }
func (c *Code) Call(fn uint32) *Code { return c.opIdx(opCall, fn) }

func (c *Code) LocalGet(i uint32) *Code { return c.opIdx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code { return c.opIdx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code { return c.opIdx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.opIdx(opGlobGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.opIdx(opGlobSet, i) }

// I32Load loads a 4-byte aligned word at offset from the address on the stack.
func (c *Code) I32Load(offset uint32) *Code { return c.mem(opI32Load, 2, offset) }

// I32Load8U loads one byte, zero-extended.
func (c *Code) I32Load8U(offset uint32) *Code { return c.mem(opI32Ld8U, 0, offset) }

// I32Store stores a 4-byte word.
func (c *Code) I32Store(offset uint32) *Code { return c.mem(opI32Store, 2, offset) }

// I32Store8 stores the low byte of the value.
func (c *Code) I32Store8(offset uint32) *Code { return c.mem(opI32St8, 0, offset) }

// I32Const pushes a constant.
func (c *Code) I32Const(v int32) *Code {
	c.w.byte(opI32Const)
	c.w.s32(v)
	return c
}

func (c *Code) I32Eqz() *Code { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code { return c.op(opI32Eq) }
func (c *Code) I32Ne() *Code { return c.op(opI32Ne) }
func (c *Code) I32LtS() *Code { return c.op(opI32LtS) }
func (c *Code) I32LtU() *Code { return c.op(opI32LtU) }
func (c *Code) I32GtS() *Code { return c.op(opI32GtS) }
func (c *Code) I32GtU() *Code { return c.op(opI32GtU) }
func (c *Code) I32Add() *Code { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code { return c.op(opI32Sub) }
func (c *Code) I32And() *Code { return c.op(opI32And) }
func (c *Code) I32Or() *Code { return c.op(opI32Or) }
