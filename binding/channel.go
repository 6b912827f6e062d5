package binding

import (
	"reflect"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
)

// Handler receives native sub-object notifications. The payload is only
// readable until the handler returns.
type Handler func(*Payload)

// Channel is the single callback slot of a native library. Every Binding over
// the same library (or, for a process-wide slot, any library sharing it)
// shares one Channel.
//
// Registration is last-writer-wins and safe for concurrent use.
type Channel struct {
	lib         ctxbind.Library
	log         *zap.Logger
	handler     atomic.Pointer[Handler]
	invocations atomic.Uint64

	mu      sync.Mutex
	pending any
	raised  bool
}

func newChannel(lib ctxbind.Library, log *zap.Logger) *Channel {
	return &Channel{lib: lib, log: log}
}

// channels maps a native callback slot to the one Channel serving it, so
// every Binding over the same slot sees the same handler and parked panic.
var channels = struct {
	sync.Mutex
	m map[any]*channelRef
}{m: make(map[any]*channelRef)}

type channelRef struct {
	ch   *Channel
	refs int
}

// slotKey identifies lib's callback slot. Libraries of a non-comparable type
// cannot be keyed and get a private channel.
func slotKey(lib ctxbind.Library) (any, bool) {
	if s, ok := lib.(ctxbind.SharedSlot); ok {
		return s.SlotKey(), true
	}
	if lib == nil || !reflect.TypeOf(lib).Comparable() {
		return nil, false
	}
	return lib, true
}

// acquireChannel returns the Channel for lib's slot and a release func.
// The last release restores the native default callback.
func acquireChannel(lib ctxbind.Library, log *zap.Logger) (*Channel, func()) {
	key, ok := slotKey(lib)
	if !ok {
		return newChannel(lib, log), func() {}
	}

	channels.Lock()
	defer channels.Unlock()

	ref := channels.m[key]
	if ref == nil {
		ref = &channelRef{ch: newChannel(lib, log)}
		channels.m[key] = ref
	}
	ref.refs++

	var once sync.Once
	return ref.ch, func() {
		once.Do(func() {
			channels.Lock()
			ref.refs--
			last := ref.refs == 0
			if last {
				delete(channels.m, key)
			}
			channels.Unlock()

			if last && ref.ch.Registered() {
				ref.ch.Register(nil)
			}
		})
	}
}

// Register installs h, replacing any previous handler.
// A nil handler restores the native library's default callback.
func (ch *Channel) Register(h Handler) {
	if h == nil {
		ch.handler.Store(nil)
		ch.lib.SetCallback(nil)
		ch.log.Debug("callback reset to native default")
		return
	}
	ch.handler.Store(&h)
	ch.lib.SetCallback(ch.dispatch)
	ch.log.Debug("callback registered")
}

// Registered reports whether a Go handler is installed.
func (ch *Channel) Registered() bool {
	return ch.handler.Load() != nil
}

// Invocations returns how many times a handler has been invoked.
func (ch *Channel) Invocations() uint64 {
	return ch.invocations.Load()
}

// dispatch is what the native library calls. It must not let a panic unwind
// into native frames, so it parks the panic for rethrow.
func (ch *Channel) dispatch(p ctxbind.Ptr) {
	h := ch.handler.Load()
	if h == nil {
		return
	}
	ch.invocations.Add(1)

	payload := &Payload{lib: ch.lib, ptr: p}
	defer payload.expire()
	defer func() {
		if r := recover(); r != nil {
			ch.log.Error("callback handler panicked", zap.Any("panic", r))
			ch.mu.Lock()
			if !ch.raised {
				ch.pending, ch.raised = r, true
			}
			ch.mu.Unlock()
		}
	}()

	(*h)(payload)
}

// rethrow re-raises a handler panic parked by dispatch.
func (ch *Channel) rethrow() {
	ch.mu.Lock()
	r, raised := ch.pending, ch.raised
	ch.pending, ch.raised = nil, false
	ch.mu.Unlock()
	if raised {
		panic(r)
	}
}

// Payload is the transient sub-object passed to a Handler.
type Payload struct {
	lib     ctxbind.Library
	ptr     ctxbind.Ptr
	expired atomic.Bool
}

func (p *Payload) expire() {
	p.expired.Store(true)
}

// Valid reports whether the payload can still be read.
func (p *Payload) Valid() bool {
	return !p.expired.Load()
}

// Bytes returns a copy of the payload bytes.
func (p *Payload) Bytes() ([]byte, error) {
	if p.expired.Load() {
		return nil, errors.Expired()
	}
	if p.ptr == 0 {
		return nil, errors.InvalidData(errors.PhaseCallback, "subobject_created", "null payload")
	}
	return p.lib.ReadCString(p.ptr), nil
}

// Text returns a copy of the payload as a string, validated as UTF-8.
func (p *Payload) Text() (string, error) {
	b, err := p.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseCallback, b)
	}
	return string(b), nil
}

// MustText is like Text but panics on failure. The panic is re-raised after
// the native call returns.
func (p *Payload) MustText() string {
	s, err := p.Text()
	if err != nil {
		panic(err)
	}
	return s
}
