package binding

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
)

// View is a read-only projection into a Context's block at an offset.
//
// A View never owns memory. It is valid while its Context is live and has not
// been mutated since the View was taken; every accessor checks both.
type View struct {
	ctx      *Context
	ptr      ctxbind.Ptr
	offset   int
	epoch    uint64
	borrowed bool
	closed   bool
}

// View creates a sub-object view at offset, which must be in [0, MaxOffset].
// The native library fires the registered callback while creating it.
func (c *Context) View(offset int) (*View, error) {
	if err := c.live(errors.PhaseView); err != nil {
		return nil, err
	}
	if offset < 0 || offset > ctxbind.MaxOffset {
		return nil, errors.InvalidOffset(offset, ctxbind.MaxOffset)
	}

	var out ctxbind.Ptr
	var status ctxbind.Status
	c.b.native(func() {
		status = c.b.lib.CreateSubobject(c.ptr, int32(offset), &out)
	})

	// The callback runs inside create_subobject and may have closed c.
	if err := c.live(errors.PhaseView); err != nil {
		return nil, err
	}

	switch status {
	case ctxbind.StatusOK:
	case ctxbind.StatusOutOfBounds:
		return nil, errors.InvalidOffset(offset, ctxbind.MaxOffset)
	default:
		c.b.log.Warn("unmapped create_subobject status",
			zap.Int32("status", int32(status)), zap.Int("offset", offset))
		return nil, errors.UnmappedStatus(errors.PhaseView, "create_subobject", int32(status))
	}

	if out == 0 {
		return nil, errors.InvalidData(errors.PhaseView, "create_subobject", "null sub-object on success")
	}
	if out < c.ptr || out > c.ptr+ctxbind.MaxOffset {
		return nil, errors.New(errors.PhaseView, errors.KindInvalidData).
			Op("create_subobject").
			Value(uint64(out)).
			Detail("sub-object %#x outside context block %#x", uint64(out), uint64(c.ptr)).
			Build()
	}

	epoch, ok := c.b.ledger.Epoch(c.handle)
	if !ok {
		c.released = true
		return nil, errors.Released(errors.PhaseView)
	}
	v := &View{ctx: c, ptr: out, offset: offset, epoch: epoch}

	if c.b.strict {
		if !c.b.ledger.Borrow(c.handle) {
			return nil, errors.Released(errors.PhaseView)
		}
		v.borrowed = true
	}

	c.b.log.Debug("view created", zap.Int("offset", offset), zap.Uintptr("subobject", uintptr(out)))
	return v, nil
}

// MustView is like View but panics on failure.
func (c *Context) MustView(offset int) *View {
	v, err := c.View(offset)
	if err != nil {
		panic(err)
	}
	return v
}

// Offset returns the offset the view was taken at.
func (v *View) Offset() int {
	return v.offset
}

// Valid reports whether the view can still be read.
func (v *View) Valid() bool {
	return v.check() == nil
}

func (v *View) check() error {
	if v.closed {
		return errors.New(errors.PhaseRender, errors.KindReleased).Detail("view closed").Build()
	}
	if err := v.ctx.live(errors.PhaseRender); err != nil {
		return err
	}
	epoch, _ := v.ctx.b.ledger.Epoch(v.ctx.handle)
	if epoch != v.epoch {
		return errors.StaleView(v.offset, v.epoch, epoch)
	}
	return nil
}

// Bytes returns a copy of the view's bytes up to the NUL terminator.
func (v *View) Bytes() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	var b []byte
	v.ctx.b.native(func() { b = v.ctx.b.lib.ReadCString(v.ptr) })
	return b, nil
}

// Text returns the view's contents as a string. Bytes that are not valid
// UTF-8 are reported as KindInvalidUTF8.
func (v *View) Text() (string, error) {
	b, err := v.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseRender, b)
	}
	return string(b), nil
}

// String implements fmt.Stringer.
func (v *View) String() string {
	s, err := v.Text()
	if err != nil {
		return "<invalid view: " + err.Error() + ">"
	}
	return s
}

// Close ends the view and returns its strict borrow. Closing twice is a no-op.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.borrowed && v.ctx.live(errors.PhaseRender) == nil {
		v.ctx.b.ledger.ReturnBorrow(v.ctx.handle)
	}
	v.borrowed = false
	return nil
}
