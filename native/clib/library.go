//go:build cgo

package clib

/*
#cgo CFLAGS: -std=c99
#include "context.h"
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
)

// slot mirrors the C library's global callback pointer on the Go side.
var slot atomic.Pointer[ctxbind.Callback]

// Library calls the C context library. It implements ctxbind.Library.
type Library struct {
	log *zap.Logger
}

var (
	_ ctxbind.Library    = (*Library)(nil)
	_ ctxbind.SharedSlot = (*Library)(nil)
)

// New returns a Library logging to log, or to Logger() when log is nil.
func New(log *zap.Logger) *Library {
	if log == nil {
		log = Logger()
	}
	return &Library{log: log}
}

// cptr converts an address obtained from the C heap back to a pointer.
// The memory is never managed by the Go collector.
func cptr(p ctxbind.Ptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p)) //nolint:govet // C heap address, never Go memory
}

func (l *Library) InitContext() ctxbind.Ptr {
	p := ctxbind.Ptr(uintptr(C.init_context()))
	l.log.Debug("init_context", zap.Uintptr("ctx", uintptr(p)), zap.ByteString("str", l.ReadCString(p)))
	return p
}

func (l *Library) FreeContext(ctx ctxbind.Ptr) {
	l.log.Debug("free_context", zap.Uintptr("ctx", uintptr(ctx)))
	C.free_context(cptr(ctx))
}

func (l *Library) ContextIsLower(ctx ctxbind.Ptr) int32 {
	return int32(C.context_is_lower(cptr(ctx)))
}

func (l *Library) ContextIsUpper(ctx ctxbind.Ptr) int32 {
	return int32(C.context_is_upper(cptr(ctx)))
}

func (l *Library) ContextToLower(ctx ctxbind.Ptr) {
	C.context_to_lower(cptr(ctx))
	l.log.Debug("context_to_lower", zap.Uintptr("ctx", uintptr(ctx)), zap.ByteString("str", l.ReadCString(ctx)))
}

func (l *Library) ContextToUpper(ctx ctxbind.Ptr) {
	C.context_to_upper(cptr(ctx))
	l.log.Debug("context_to_upper", zap.Uintptr("ctx", uintptr(ctx)), zap.ByteString("str", l.ReadCString(ctx)))
}

// CreateSubobject passes parent, offset and out in the C library's exact order.
func (l *Library) CreateSubobject(ctx ctxbind.Ptr, offset int32, out *ctxbind.Ptr) ctxbind.Status {
	l.log.Debug("create_subobject", zap.Uintptr("ctx", uintptr(ctx)), zap.Int32("offset", offset))

	var sub unsafe.Pointer
	status := ctxbind.Status(C.create_subobject(cptr(ctx), C.int(offset), &sub))
	if status == ctxbind.StatusOK {
		*out = ctxbind.Ptr(uintptr(sub))
	}
	return status
}

// SetCallback installs fn process-wide. nil restores the C default.
func (l *Library) SetCallback(fn ctxbind.Callback) {
	if fn == nil {
		slot.Store(nil)
		C.use_default_callback()
		return
	}
	slot.Store(&fn)
	C.use_go_callback()
}

// SlotKey reports the process-wide C callback slot, shared by every Library.
func (l *Library) SlotKey() any {
	return &slot
}

func (l *Library) ReadCString(p ctxbind.Ptr) []byte {
	if p == 0 {
		return nil
	}
	return []byte(C.GoString((*C.char)(cptr(p))))
}

//export goSubobjectCreated
func goSubobjectCreated(subobject *C.char) {
	if fn := slot.Load(); fn != nil {
		(*fn)(ctxbind.Ptr(uintptr(unsafe.Pointer(subobject))))
	}
}
