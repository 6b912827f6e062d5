package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ctxbind/errors"
	"github.com/wippyai/ctxbind/resource"
)

func TestNewContext_AllocationFailure(t *testing.T) {
	lib := newFakeLibrary()
	lib.failAlloc = true
	b := New(lib)

	c, err := b.NewContext()
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Equal(t, errors.KindAllocation, errors.KindOf(err))
	assert.Zero(t, b.Ledger().Len())

	assert.Panics(t, func() { b.MustNewContext() })
}

func TestNewContext_AlreadyOwned(t *testing.T) {
	lib := newFakeLibrary()
	lib.fixedAddr = 128
	b := New(lib)

	first, err := b.NewContext()
	require.NoError(t, err)

	_, err = b.NewContext()
	require.Error(t, err)
	assert.Equal(t, errors.KindAlreadyOwned, errors.KindOf(err))
	assert.Zero(t, lib.frees[128], "block owned by the first context must not be freed")

	require.NoError(t, first.Close())
	assert.Equal(t, 1, lib.frees[128])
}

func TestContext_CloseExactlyOnce(t *testing.T) {
	lib := newFakeLibrary()
	b := New(lib)

	c, err := b.NewContext()
	require.NoError(t, err)
	ptr := c.ptr

	require.NoError(t, c.Close())
	assert.Equal(t, 1, lib.frees[ptr])
	assert.True(t, c.Released())

	err = c.Close()
	require.Error(t, err)
	assert.Equal(t, errors.KindReleased, errors.KindOf(err))
	assert.Equal(t, 1, lib.frees[ptr])
}

func TestContext_OperationsAfterClose(t *testing.T) {
	lib := newFakeLibrary()
	b := New(lib)

	c, err := b.NewContext()
	require.NoError(t, err)
	require.NoError(t, c.Close())
	calls := lib.calls

	ops := map[string]func() error{
		"IsLower":  func() error { _, err := c.IsLower(); return err },
		"IsUpper":  func() error { _, err := c.IsUpper(); return err },
		"Classify": func() error { _, err := c.Classify(); return err },
		"ToLower":  c.ToLower,
		"ToUpper":  c.ToUpper,
		"View":     func() error { _, err := c.View(0); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.Equal(t, errors.KindReleased, errors.KindOf(err))
		})
	}
	assert.Equal(t, calls, lib.calls, "no native call after release")
}

func TestContext_Classify(t *testing.T) {
	b := New(newFakeLibrary())
	c := b.MustNewContext()
	defer c.Close()

	class, err := c.Classify()
	require.NoError(t, err)
	assert.Equal(t, Lower, class)

	require.NoError(t, c.ToLower())
	class, err = c.Classify()
	require.NoError(t, err)
	assert.Equal(t, Upper, class)

	require.NoError(t, c.ToUpper())
	require.NoError(t, c.ToUpper())
	class, err = c.Classify()
	require.NoError(t, err)
	assert.Equal(t, Unspecified, class)
}

func TestContext_ClassifyBothIsUnspecified(t *testing.T) {
	lib := newFakeLibrary()
	lib.both = true
	c := New(lib).MustNewContext()
	defer c.Close()

	lower, err := c.IsLower()
	require.NoError(t, err)
	upper, err := c.IsUpper()
	require.NoError(t, err)
	require.True(t, lower && upper)

	class, err := c.Classify()
	require.NoError(t, err)
	assert.Equal(t, Unspecified, class)
}

func TestContext_QueryOnlyOneIsTrue(t *testing.T) {
	lib := newFakeLibrary()
	lib.queryValue = 2
	c := New(lib).MustNewContext()
	defer c.Close()

	lower, err := c.IsLower()
	require.NoError(t, err)
	assert.False(t, lower)
}

func TestContext_TransformAdvancesEpoch(t *testing.T) {
	b := New(newFakeLibrary())
	c := b.MustNewContext()
	defer c.Close()

	epoch, ok := b.Ledger().Epoch(c.Handle())
	require.True(t, ok)
	assert.Zero(t, epoch)

	require.NoError(t, c.ToLower())
	require.NoError(t, c.ToUpper())

	epoch, _ = b.Ledger().Epoch(c.Handle())
	assert.Equal(t, uint64(2), epoch)
}

func TestContext_CheckedTransforms(t *testing.T) {
	lib := newFakeLibrary()
	c := New(lib).MustNewContext()
	defer c.Close()

	err := c.ToUpperChecked()
	require.Error(t, err)
	assert.Equal(t, errors.KindPrecondition, errors.KindOf(err))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.PhaseTransform, e.Phase)
	assert.Equal(t, "context_to_upper", e.Op)
	assert.Equal(t, Lower, e.Value)
	assert.Contains(t, e.Detail, "requires upper")
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(lib.ReadCString(c.ptr)), "refused transform must not touch native memory")

	require.NoError(t, c.ToLowerChecked())
	err = c.ToLowerChecked()
	require.Error(t, err)
	assert.Equal(t, errors.KindPrecondition, errors.KindOf(err))

	require.NoError(t, c.ToUpperChecked())
	class, err := c.Classify()
	require.NoError(t, err)
	assert.Equal(t, Lower, class)
}

func TestWithContext_ReleasesOnEveryPath(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		lib := newFakeLibrary()
		b := New(lib)

		var seen *Context
		err := b.WithContext(func(c *Context) error {
			seen = c
			return c.ToLower()
		})
		require.NoError(t, err)
		assert.True(t, seen.Released())
		assert.Equal(t, 1, lib.frees[seen.ptr])
	})

	t.Run("error", func(t *testing.T) {
		lib := newFakeLibrary()
		b := New(lib)

		want := errors.Precondition("test", "boom")
		var seen *Context
		err := b.WithContext(func(c *Context) error {
			seen = c
			return want
		})
		assert.Same(t, want, err)
		assert.Equal(t, 1, lib.frees[seen.ptr])
	})

	t.Run("panic", func(t *testing.T) {
		lib := newFakeLibrary()
		b := New(lib)

		var seen *Context
		assert.PanicsWithValue(t, "boom", func() {
			_ = b.WithContext(func(c *Context) error {
				seen = c
				panic("boom")
			})
		})
		assert.Equal(t, 1, lib.frees[seen.ptr])
		assert.Zero(t, b.Ledger().Len())
	})

	t.Run("closed inside", func(t *testing.T) {
		lib := newFakeLibrary()
		b := New(lib)

		var seen *Context
		err := b.WithContext(func(c *Context) error {
			seen = c
			return c.Close()
		})
		require.Error(t, err, "scope end reports the double release")
		assert.Equal(t, errors.KindReleased, errors.KindOf(err))
		assert.Equal(t, 1, lib.frees[seen.ptr])
	})
}

func TestBinding_CloseFreesLeaked(t *testing.T) {
	lib := newFakeLibrary()
	b := New(lib)

	leaked := b.MustNewContext()
	closed := b.MustNewContext()
	require.NoError(t, closed.Close())

	assert.Equal(t, 1, b.Close())
	assert.Equal(t, 1, lib.frees[leaked.ptr])

	_, err := leaked.IsLower()
	assert.Equal(t, errors.KindReleased, errors.KindOf(err))

	err = leaked.Close()
	assert.Equal(t, errors.KindReleased, errors.KindOf(err))
	assert.Equal(t, 1, lib.frees[leaked.ptr], "no double free after binding close")

	_, err = b.NewContext()
	require.Error(t, err)
	assert.Equal(t, errors.KindReleased, errors.KindOf(err))
}

type eventRecorder struct {
	events []resource.EventType
}

func (r *eventRecorder) OnLedgerEvent(e resource.Event) {
	r.events = append(r.events, e.Type)
}

func TestBinding_LedgerEvents(t *testing.T) {
	b := New(newFakeLibrary(), WithStrictBorrows())
	rec := &eventRecorder{}
	b.Ledger().Subscribe(rec)

	c := b.MustNewContext()
	v := c.MustView(3)
	require.NoError(t, v.Close())
	require.NoError(t, c.ToLower())
	require.NoError(t, c.Close())

	assert.Equal(t, []resource.EventType{
		resource.EventClaimed,
		resource.EventBorrowed,
		resource.EventBorrowReturned,
		resource.EventMutated,
		resource.EventReleased,
	}, rec.events)
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "lower", Lower.String())
	assert.Equal(t, "upper", Upper.String())
	assert.Equal(t, "unspecified", Unspecified.String())
}
