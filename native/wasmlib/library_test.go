package wasmlib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
)

func newLibrary(t *testing.T, cfg *Config) *Library {
	t.Helper()
	ctx := context.Background()
	lib, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close(ctx) })
	return lib
}

func TestLibrary_InitContext(t *testing.T) {
	lib := newLibrary(t, nil)

	p := lib.InitContext()
	require.NotZero(t, p)
	defer lib.FreeContext(p)

	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(lib.ReadCString(p)))
	assert.Equal(t, int32(1), lib.ContextIsLower(p))
	assert.Equal(t, int32(0), lib.ContextIsUpper(p))
}

func TestLibrary_Transforms(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	lib.ContextToLower(p)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", string(lib.ReadCString(p)))
	assert.Equal(t, int32(0), lib.ContextIsLower(p))
	assert.Equal(t, int32(1), lib.ContextIsUpper(p))

	lib.ContextToUpper(p)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(lib.ReadCString(p)))

	// Not idempotent: a second to_upper leaves the letter range.
	lib.ContextToUpper(p)
	assert.Equal(t, "!\"#$%&'()*+,-./0123456789:", string(lib.ReadCString(p)))
	assert.Equal(t, int32(0), lib.ContextIsLower(p))
	assert.Equal(t, int32(0), lib.ContextIsUpper(p))
}

func TestLibrary_TransformWrapsLikeChar(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	lib.ContextToLower(p)
	lib.ContextToLower(p)

	got := lib.ReadCString(p)
	require.Len(t, got, ctxbind.MaxOffset)
	assert.Equal(t, byte('A'+64), got[0])
	assert.Equal(t, byte('Z'+64), got[25])

	lib.ContextToUpper(p)
	lib.ContextToUpper(p)
	lib.ContextToUpper(p)
	lib.ContextToUpper(p)
	got = lib.ReadCString(p)
	assert.Equal(t, byte(1), got[0], "'A' - 64 wraps to 0x01")
}

func TestLibrary_CreateSubobject(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	for offset := int32(0); offset <= ctxbind.MaxOffset; offset++ {
		var out ctxbind.Ptr
		status := lib.CreateSubobject(p, offset, &out)
		require.Equal(t, ctxbind.StatusOK, status, "offset %d", offset)
		assert.Equal(t, p+ctxbind.Ptr(offset), out)
	}

	var out ctxbind.Ptr
	got := lib.ReadCString(func() ctxbind.Ptr {
		lib.CreateSubobject(p, 16, &out)
		return out
	}())
	assert.Equal(t, "QRSTUVWXYZ", string(got))
}

func TestLibrary_CreateSubobjectOutOfBounds(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	fired := 0
	lib.SetCallback(func(ctxbind.Ptr) { fired++ })

	for _, offset := range []int32{-1, 27, 100} {
		out := ctxbind.Ptr(0xdead)
		status := lib.CreateSubobject(p, offset, &out)
		assert.Equal(t, ctxbind.StatusOutOfBounds, status, "offset %d", offset)
		assert.Equal(t, ctxbind.Ptr(0xdead), out, "out must be untouched on failure")
	}
	assert.Zero(t, fired, "callback must not fire for rejected offsets")
}

func TestLibrary_Callback(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	var got []string
	lib.SetCallback(func(sub ctxbind.Ptr) {
		got = append(got, string(lib.ReadCString(sub)))
	})

	var out ctxbind.Ptr
	lib.CreateSubobject(p, 20, &out)
	lib.CreateSubobject(p, 24, &out)
	assert.Equal(t, []string{"UVWXYZ", "YZ"}, got)

	lib.SetCallback(nil)
	lib.CreateSubobject(p, 0, &out)
	assert.Len(t, got, 2, "default callback must not reach the old handler")
}

func TestLibrary_FreeListReuse(t *testing.T) {
	lib := newLibrary(t, nil)

	a := lib.InitContext()
	b := lib.InitContext()
	require.NotEqual(t, a, b)

	lib.ContextToLower(a)
	lib.FreeContext(a)

	c := lib.InitContext()
	assert.Equal(t, a, c, "freed block is reused first")
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(lib.ReadCString(c)), "reused block is reinitialised")

	lib.FreeContext(b)
	lib.FreeContext(c)
	lib.FreeContext(0)
}

func TestLibrary_Exhaustion(t *testing.T) {
	lib := newLibrary(t, &Config{Pages: 1})

	capacity := (pageSize - heapBase) / blockStride
	var blocks []ctxbind.Ptr
	for i := 0; i < capacity; i++ {
		p := lib.InitContext()
		require.NotZero(t, p, "allocation %d", i)
		blocks = append(blocks, p)
	}

	assert.Zero(t, lib.InitContext(), "heap exhausted")

	lib.FreeContext(blocks[0])
	assert.Equal(t, blocks[0], lib.InitContext())
}

func TestLibrary_ReadCStringBounds(t *testing.T) {
	lib := newLibrary(t, nil)

	assert.Nil(t, lib.ReadCString(0))
	assert.Nil(t, lib.ReadCString(ctxbind.Ptr(pageSize)))
	assert.Empty(t, lib.ReadCString(ctxbind.Ptr(pageSize-1)))
}

func TestLibrary_ReadCStringCopies(t *testing.T) {
	lib := newLibrary(t, nil)
	p := lib.InitContext()
	defer lib.FreeContext(p)

	before := lib.ReadCString(p)
	lib.ContextToLower(p)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(before))
}

func TestNew_RejectsOversizedHeap(t *testing.T) {
	_, err := New(context.Background(), &Config{Pages: maxPages + 1})
	require.Error(t, err)
	assert.Equal(t, errors.KindInstantiation, errors.KindOf(err))
}

func TestLibrary_TrapPanics(t *testing.T) {
	lib := newLibrary(t, nil)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.Equal(t, errors.KindTrap, errors.KindOf(err))
	}()

	// One past the last page: the guest load is out of bounds.
	lib.ContextIsLower(ctxbind.Ptr(pageSize))
}
