package ctxbind

// MaxOffset is the largest sub-object offset the native library accepts.
// It is a fixed property of the library's contract, not a setting.
const MaxOffset = 26

// BlockSize is the size of one native context block, including the NUL terminator.
const BlockSize = MaxOffset + 1

// Ptr is an address in the native library's memory.
// Zero is the null pointer.
type Ptr uintptr

// Status is the return code of create_subobject.
type Status int32

const (
	StatusOK          Status = 0
	StatusOutOfBounds Status = -1
)

// Callback is the native callback signature. The pointer it receives is only
// valid until the callback returns.
type Callback func(subobject Ptr)

// Library is the native context library's ABI.
//
// Methods mirror the C entry points one to one and inherit their contracts:
// passing a freed or foreign Ptr is undefined behaviour, and nothing here
// checks it. Use the binding package for a checked API.
type Library interface {
	// InitContext allocates one context. Returns 0 on allocation failure.
	InitContext() Ptr

	// FreeContext releases a context. Must be called exactly once per context.
	FreeContext(ctx Ptr)

	// ContextIsLower returns 1 when the library classifies ctx as lower.
	ContextIsLower(ctx Ptr) int32

	// ContextIsUpper returns 1 when the library classifies ctx as upper.
	ContextIsUpper(ctx Ptr) int32

	// ContextToLower transforms ctx in place.
	ContextToLower(ctx Ptr)

	// ContextToUpper transforms ctx in place.
	ContextToUpper(ctx Ptr)

	// CreateSubobject writes a pointer into ctx at offset to out and fires the
	// registered callback with it. Returns StatusOutOfBounds when offset is
	// outside [0, MaxOffset].
	CreateSubobject(ctx Ptr, offset int32, out *Ptr) Status

	// SetCallback installs the single process-wide callback.
	// A nil callback restores the library's default.
	SetCallback(fn Callback)

	// ReadCString copies the NUL-terminated bytes at p, without the terminator.
	ReadCString(p Ptr) []byte
}

// SharedSlot is implemented by libraries whose callback slot is shared by
// every Library value, like a C global. SlotKey identifies that slot and must
// be comparable.
type SharedSlot interface {
	SlotKey() any
}
