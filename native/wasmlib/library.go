package wasmlib

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
)

// Guest export and import names.
const (
	fnInit      = "init_context"
	fnFree      = "free_context"
	fnIsLower   = "context_is_lower"
	fnIsUpper   = "context_is_upper"
	fnToLower   = "context_to_lower"
	fnToUpper   = "context_to_upper"
	fnSubobject = "create_subobject"

	hostModule   = "env"
	hostCallback = "subobject_created"
	guestName    = "ctxlib"
)

// Config holds configuration for library creation
type Config struct {
	// Logger receives the library's native call trace. Defaults to Logger().
	Logger *zap.Logger

	// Pages is the guest heap size in 64 KiB pages. 0 means 1 page, which
	// holds 2016 contexts before init_context starts returning null.
	Pages uint32
}

// Library runs the native context library as a WebAssembly guest.
// It implements ctxbind.Library. Addresses are offsets into guest memory.
//
// Library is NOT safe for concurrent use; the callback slot is.
type Library struct {
	ctx      context.Context
	runtime  wazero.Runtime
	module   api.Module
	log      *zap.Logger
	callback atomic.Pointer[ctxbind.Callback]
}

var _ ctxbind.Library = (*Library)(nil)

// New compiles and instantiates the guest library. ctx is used for every
// subsequent native call; the library has no cancellation points of its own.
func New(ctx context.Context, cfg *Config) (*Library, error) {
	pages := uint32(1)
	log := Logger()
	if cfg != nil {
		if cfg.Pages > 0 {
			pages = cfg.Pages
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}
	if pages > maxPages {
		return nil, errors.New(errors.PhaseNative, errors.KindInstantiation).
			Value(pages).
			Detail("guest heap of %d pages exceeds %d", pages, maxPages).
			Build()
	}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(pages))

	l := &Library{
		ctx:     ctx,
		runtime: r,
		log:     log,
	}

	_, err := r.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.onSubobjectCreated), []api.ValueType{api.ValueTypeI32}, nil).
		Export(hostCallback).
		Instantiate(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation("instantiate host module", err)
	}

	mod, err := r.InstantiateWithConfig(ctx, buildGuest(pages), wazero.NewModuleConfig().WithName(guestName))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation("instantiate guest", err)
	}
	l.module = mod

	log.Debug("guest library ready", zap.Uint32("pages", pages))
	return l, nil
}

// maxPages keeps the heap limit representable as an i32 constant.
const maxPages = 32767

// Close releases the wazero runtime. Outstanding contexts become invalid.
func (l *Library) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// call invokes a guest export. A trap is a native fault and panics.
func (l *Library) call(name string, params ...uint64) uint64 {
	fn := l.module.ExportedFunction(name)
	if fn == nil {
		panic(errors.Trap(name, errors.New(errors.PhaseNative, errors.KindInstantiation).Detail("export missing").Build()))
	}
	res, err := fn.Call(l.ctx, params...)
	if err != nil {
		panic(errors.Trap(name, err))
	}
	if len(res) == 0 {
		return 0
	}
	return res[0]
}

// InitContext allocates one context block.
func (l *Library) InitContext() ctxbind.Ptr {
	p := ctxbind.Ptr(api.DecodeU32(l.call(fnInit)))
	l.log.Debug(fnInit, zap.Uintptr("ctx", uintptr(p)), zap.ByteString("str", l.ReadCString(p)))
	return p
}

// FreeContext returns the block to the guest free list.
func (l *Library) FreeContext(ctx ctxbind.Ptr) {
	l.log.Debug(fnFree, zap.Uintptr("ctx", uintptr(ctx)))
	l.call(fnFree, encodePtr(ctx))
}

func (l *Library) ContextIsLower(ctx ctxbind.Ptr) int32 {
	return api.DecodeI32(l.call(fnIsLower, encodePtr(ctx)))
}

func (l *Library) ContextIsUpper(ctx ctxbind.Ptr) int32 {
	return api.DecodeI32(l.call(fnIsUpper, encodePtr(ctx)))
}

func (l *Library) ContextToLower(ctx ctxbind.Ptr) {
	l.call(fnToLower, encodePtr(ctx))
	l.log.Debug(fnToLower, zap.Uintptr("ctx", uintptr(ctx)), zap.ByteString("str", l.ReadCString(ctx)))
}

func (l *Library) ContextToUpper(ctx ctxbind.Ptr) {
	l.call(fnToUpper, encodePtr(ctx))
	l.log.Debug(fnToUpper, zap.Uintptr("ctx", uintptr(ctx)), zap.ByteString("str", l.ReadCString(ctx)))
}

// CreateSubobject calls the guest with its scratch out slot and copies the
// written pointer to out on success.
func (l *Library) CreateSubobject(ctx ctxbind.Ptr, offset int32, out *ctxbind.Ptr) ctxbind.Status {
	l.log.Debug(fnSubobject, zap.Uintptr("ctx", uintptr(ctx)), zap.Int32("offset", offset))

	mem := l.module.Memory()
	mem.WriteUint32Le(outSlot, 0)

	status := ctxbind.Status(api.DecodeI32(l.call(fnSubobject, encodePtr(ctx), api.EncodeI32(offset), api.EncodeU32(outSlot))))
	if status != ctxbind.StatusOK {
		return status
	}

	v, ok := mem.ReadUint32Le(outSlot)
	if !ok {
		panic(errors.Trap(fnSubobject, errors.InvalidData(errors.PhaseNative, fnSubobject, "out slot unreadable")))
	}
	*out = ctxbind.Ptr(v)
	return status
}

// SetCallback installs fn as the subobject_created handler. nil restores the default.
func (l *Library) SetCallback(fn ctxbind.Callback) {
	if fn == nil {
		l.callback.Store(nil)
		return
	}
	l.callback.Store(&fn)
}

// ReadCString copies the bytes at p up to the first NUL or the end of memory.
func (l *Library) ReadCString(p ctxbind.Ptr) []byte {
	mem := l.module.Memory()
	size := mem.Size()
	if p == 0 || uint64(p) >= uint64(size) {
		return nil
	}
	view, ok := mem.Read(uint32(p), size-uint32(p))
	if !ok {
		return nil
	}
	if i := bytes.IndexByte(view, 0); i >= 0 {
		view = view[:i]
	}
	return bytes.Clone(view)
}

func (l *Library) onSubobjectCreated(_ context.Context, _ api.Module, stack []uint64) {
	p := ctxbind.Ptr(api.DecodeU32(stack[0]))
	if fn := l.callback.Load(); fn != nil {
		(*fn)(p)
		return
	}
	l.log.Debug("default callback", zap.Uintptr("subobject", uintptr(p)))
}

func encodePtr(p ctxbind.Ptr) uint64 {
	return api.EncodeU32(uint32(p))
}
