package binding

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
	"github.com/wippyai/ctxbind/resource"
)

// Binding wraps a native library with ownership, lifetime and callback checks.
type Binding struct {
	lib     ctxbind.Library
	ledger  *resource.Ledger
	channel *Channel
	release func()
	log     *zap.Logger
	strict  bool
}

// New creates a Binding over lib.
func New(lib ctxbind.Library, opts ...Option) *Binding {
	b := &Binding{
		lib:    lib,
		ledger: resource.NewLedger(),
		log:    Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.channel, b.release = acquireChannel(lib, b.log)
	return b
}

// Library returns the wrapped native library.
func (b *Binding) Library() ctxbind.Library {
	return b.lib
}

// Ledger returns the ownership ledger. Subscribe to it to observe block
// lifecycle events.
func (b *Binding) Ledger() *resource.Ledger {
	return b.ledger
}

// Channel returns the callback channel of the binding's library. Bindings
// over the same library share it.
func (b *Binding) Channel() *Channel {
	return b.channel
}

// Strict reports whether views hold strict borrows.
func (b *Binding) Strict() bool {
	return b.strict
}

// NewContext allocates a native context.
//
// A null allocation is reported as KindAllocation. There is no partial state
// to clean up, and callers should treat it as fatal.
func (b *Binding) NewContext() (*Context, error) {
	var p ctxbind.Ptr
	b.native(func() { p = b.lib.InitContext() })
	if p == 0 {
		b.log.Error("native allocation failed")
		return nil, errors.AllocationFailed("init_context")
	}

	h, err := b.ledger.Claim(uint64(p))
	if err != nil {
		if stderrors.Is(err, resource.ErrAlreadyOwned) {
			// The block belongs to another context; freeing it would free theirs.
			b.log.Error("native allocator returned a live block", zap.Uintptr("ctx", uintptr(p)))
			return nil, errors.AlreadyOwned(uint64(p))
		}
		b.lib.FreeContext(p)
		return nil, errors.New(errors.PhaseAlloc, errors.KindReleased).
			Op("init_context").
			Cause(err).
			Detail("binding closed").
			Build()
	}

	b.log.Debug("context created", zap.Uintptr("ctx", uintptr(p)), zap.Uint32("handle", uint32(h)))
	return &Context{b: b, handle: h, ptr: p}, nil
}

// MustNewContext is like NewContext but panics on failure.
func (b *Binding) MustNewContext() *Context {
	c, err := b.NewContext()
	if err != nil {
		panic(err)
	}
	return c
}

// WithContext creates a context, runs fn and releases the context on every
// exit path, including a panic in fn. Views still open when fn returns are
// invalidated rather than blocking the release, even with strict borrows.
func (b *Binding) WithContext(fn func(*Context) error) (err error) {
	c, err := b.NewContext()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.release(true); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Close stops the binding from creating contexts and frees every block still
// owned. Contexts that were not closed report KindReleased afterwards.
// When it is the last binding over its library, the native default callback
// is restored. It returns the number of leaked contexts it freed.
func (b *Binding) Close() int {
	b.release()
	leaked := b.ledger.Close()
	for _, addr := range leaked {
		b.log.Warn("freeing leaked context", zap.Uintptr("ctx", uintptr(addr)))
		b.lib.FreeContext(ctxbind.Ptr(addr))
	}
	return len(leaked)
}

// native runs a call into the library and re-raises any handler panic the
// call triggered.
func (b *Binding) native(fn func()) {
	fn()
	b.channel.rethrow()
}
