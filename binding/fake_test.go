package binding

import (
	"bytes"

	"github.com/wippyai/ctxbind"
)

const (
	fakeBase   = 64
	fakeStride = 32
	fakeSize   = 4096
)

// fakeLibrary is an in-memory ctxbind.Library with failure injection.
type fakeLibrary struct {
	mem      []byte
	next     ctxbind.Ptr
	frees    map[ctxbind.Ptr]int
	callback ctxbind.Callback
	calls    int

	failAlloc  bool
	fixedAddr  ctxbind.Ptr
	status     *ctxbind.Status
	out        *ctxbind.Ptr
	queryValue int32
	both       bool
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		mem:        make([]byte, fakeSize),
		next:       fakeBase,
		frees:      make(map[ctxbind.Ptr]int),
		queryValue: 1,
	}
}

func (f *fakeLibrary) InitContext() ctxbind.Ptr {
	f.calls++
	if f.failAlloc {
		return 0
	}
	p := f.fixedAddr
	if p == 0 {
		p = f.next
		f.next += fakeStride
	}
	for i := 0; i < ctxbind.MaxOffset; i++ {
		f.mem[int(p)+i] = byte('A' + i)
	}
	f.mem[int(p)+ctxbind.MaxOffset] = 0
	return p
}

func (f *fakeLibrary) FreeContext(ctx ctxbind.Ptr) {
	f.calls++
	f.frees[ctx]++
}

func (f *fakeLibrary) answer(ok bool) int32 {
	if ok || f.both {
		return f.queryValue
	}
	return 0
}

func (f *fakeLibrary) ContextIsLower(ctx ctxbind.Ptr) int32 {
	f.calls++
	return f.answer(f.mem[ctx] == 'A')
}

func (f *fakeLibrary) ContextIsUpper(ctx ctxbind.Ptr) int32 {
	f.calls++
	return f.answer(f.mem[ctx] == 'a')
}

func (f *fakeLibrary) shift(ctx ctxbind.Ptr, delta byte) {
	for i := 0; i < ctxbind.MaxOffset; i++ {
		f.mem[int(ctx)+i] += delta
	}
}

func (f *fakeLibrary) ContextToLower(ctx ctxbind.Ptr) {
	f.calls++
	f.shift(ctx, ' ')
}

func (f *fakeLibrary) ContextToUpper(ctx ctxbind.Ptr) {
	f.calls++
	f.shift(ctx, 256-' ')
}

func (f *fakeLibrary) CreateSubobject(ctx ctxbind.Ptr, offset int32, out *ctxbind.Ptr) ctxbind.Status {
	f.calls++
	if f.status != nil {
		return *f.status
	}
	if offset < 0 || offset > ctxbind.MaxOffset {
		return ctxbind.StatusOutOfBounds
	}
	*out = ctx + ctxbind.Ptr(offset)
	if f.out != nil {
		*out = *f.out
	}
	if f.callback != nil {
		f.callback(*out)
	}
	return ctxbind.StatusOK
}

func (f *fakeLibrary) SetCallback(fn ctxbind.Callback) {
	f.callback = fn
}

func (f *fakeLibrary) ReadCString(p ctxbind.Ptr) []byte {
	if p == 0 || int(p) >= len(f.mem) {
		return nil
	}
	view := f.mem[p:]
	if i := bytes.IndexByte(view, 0); i >= 0 {
		view = view[:i]
	}
	return bytes.Clone(view)
}
