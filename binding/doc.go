// Package binding is the checked API over a ctxbind.Library.
//
// A Binding owns three things: the ledger of native blocks it allocated, the
// callback Channel, and its logger. From it callers create Contexts:
//
//	b := binding.New(lib, binding.WithLogger(log))
//	defer b.Close()
//
//	err := b.WithContext(func(c *binding.Context) error {
//	    class, err := c.Classify()
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(class) // lower
//
//	    v, err := c.View(16)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(v) // QRSTUVWXYZ
//	    return c.ToLower() // v is stale from here on
//	})
//
// # Contexts
//
// A Context exclusively owns one native block and frees it exactly once in
// Close. Every operation on a closed Context returns an errors.KindReleased
// error without touching native memory.
//
// The native transforms are not idempotent. ToLower is only well defined
// from Lower and ToUpper only from Upper; anything else leaves the context
// Unspecified. The binding reports that state but does not prevent it,
// unless the Checked variants are used.
//
// # Views
//
// A View points into its Context's block. It records the context epoch when
// taken and fails closed on every access once the context was mutated
// (KindStaleView) or released (KindReleased). With WithStrictBorrows the
// context instead refuses to mutate or release while views are open
// (KindOutstandingBorrow); close views to return their borrow.
//
// # Callbacks
//
// The native library has one callback slot. Channel.Register installs a
// Handler into it, replacing the previous one. A Handler receives a *Payload
// that is only readable during the call; Text and Bytes return copies.
// A panic inside a Handler is held at the native boundary and re-raised once
// the native call that triggered it has returned.
package binding
