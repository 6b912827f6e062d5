package binding

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/errors"
	"github.com/wippyai/ctxbind/resource"
)

// noCopy makes go vet's copylocks check flag copies of a Context.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Context exclusively owns one native context block.
//
// A Context must not be copied and is NOT safe for concurrent use.
type Context struct {
	_        noCopy
	b        *Binding
	handle   resource.Handle
	ptr      ctxbind.Ptr
	released bool
}

// Handle returns the context's ledger handle.
func (c *Context) Handle() resource.Handle {
	return c.handle
}

// Released reports whether the context has been released, either by Close or
// by closing its Binding.
func (c *Context) Released() bool {
	return c.live(errors.PhaseQuery) != nil
}

// live fails once the context was closed or its binding's ledger dropped it.
func (c *Context) live(phase errors.Phase) error {
	if c.released {
		return errors.Released(phase)
	}
	if _, ok := c.b.ledger.Addr(c.handle); !ok {
		c.released = true
		return errors.Released(phase)
	}
	return nil
}

// IsLower asks the native library whether the context is lower.
// Only the exact native answer 1 counts as true.
func (c *Context) IsLower() (bool, error) {
	if err := c.live(errors.PhaseQuery); err != nil {
		return false, err
	}
	var r int32
	c.b.native(func() { r = c.b.lib.ContextIsLower(c.ptr) })
	return r == 1, nil
}

// IsUpper asks the native library whether the context is upper.
// Only the exact native answer 1 counts as true.
func (c *Context) IsUpper() (bool, error) {
	if err := c.live(errors.PhaseQuery); err != nil {
		return false, err
	}
	var r int32
	c.b.native(func() { r = c.b.lib.ContextIsUpper(c.ptr) })
	return r == 1, nil
}

// Classify combines both native queries into a Classification.
func (c *Context) Classify() (Classification, error) {
	lower, err := c.IsLower()
	if err != nil {
		return Unspecified, err
	}
	upper, err := c.IsUpper()
	if err != nil {
		return Unspecified, err
	}
	if lower && upper {
		c.b.log.Warn("native library reports both lower and upper",
			zap.Uintptr("ctx", uintptr(c.ptr)))
	}
	return classify(lower, upper), nil
}

// ToLower transforms the context in place. It is not idempotent: called on
// anything but a Lower context it leaves the context Unspecified. Check the
// classification first when that matters, or use ToLowerChecked.
func (c *Context) ToLower() error {
	return c.transform("context_to_lower", c.b.lib.ContextToLower)
}

// ToUpper transforms the context in place. Like ToLower it is only well
// defined from one state, Upper.
func (c *Context) ToUpper() error {
	return c.transform("context_to_upper", c.b.lib.ContextToUpper)
}

// ToLowerChecked runs ToLower only if the context is Lower, the one state
// from which the transform yields a classified context.
func (c *Context) ToLowerChecked() error {
	return c.checked("context_to_lower", Lower, c.ToLower)
}

// ToUpperChecked runs ToUpper only if the context is Upper.
func (c *Context) ToUpperChecked() error {
	return c.checked("context_to_upper", Upper, c.ToUpper)
}

func (c *Context) checked(op string, want Classification, fn func() error) error {
	got, err := c.Classify()
	if err != nil {
		return err
	}
	if got != want {
		err := errors.Precondition(op, fmt.Sprintf("context is %s, %s requires %s", got, op, want))
		err.Value = got
		return err
	}
	return fn()
}

// transform bumps the epoch before touching native memory, so a refused
// mutation leaves the block untouched.
func (c *Context) transform(op string, fn func(ctxbind.Ptr)) error {
	if err := c.live(errors.PhaseTransform); err != nil {
		return err
	}

	epoch, err := c.b.ledger.Advance(c.handle)
	if err != nil {
		return c.ledgerError(errors.PhaseTransform, err)
	}

	c.b.native(func() { fn(c.ptr) })
	c.b.log.Debug(op, zap.Uintptr("ctx", uintptr(c.ptr)), zap.Uint64("epoch", epoch))
	return nil
}

// Close frees the native block. It succeeds exactly once; later calls return
// KindReleased. With strict borrows it fails while views are open.
func (c *Context) Close() error {
	return c.release(false)
}

// release frees the block. force drops outstanding strict borrows first;
// the views holding them see the context as released.
func (c *Context) release(force bool) error {
	if err := c.live(errors.PhaseRelease); err != nil {
		return err
	}

	if force {
		if n, _ := c.b.ledger.Borrows(c.handle); n > 0 {
			c.b.log.Warn("releasing context with open views", zap.Uint32("borrows", n))
			for ; n > 0; n-- {
				c.b.ledger.ReturnBorrow(c.handle)
			}
		}
	}

	addr, err := c.b.ledger.Release(c.handle)
	if err != nil {
		return c.ledgerError(errors.PhaseRelease, err)
	}
	c.released = true

	c.b.native(func() { c.b.lib.FreeContext(ctxbind.Ptr(addr)) })
	c.b.log.Debug("context released", zap.Uintptr("ctx", uintptr(addr)))
	return nil
}

func (c *Context) ledgerError(phase errors.Phase, err error) error {
	if stderrors.Is(err, resource.ErrOutstandingBorrow) {
		n, _ := c.b.ledger.Borrows(c.handle)
		return errors.OutstandingBorrow(phase, n)
	}
	c.released = true
	return errors.New(phase, errors.KindReleased).Cause(err).Detail("context already released").Build()
}
