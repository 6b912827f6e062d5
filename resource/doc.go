// Package resource provides the ownership ledger for native context blocks.
//
// The native library hands out raw pointers and trusts its caller to free each
// one exactly once and never to touch it afterwards. The Ledger records, per
// live block, which handle owns it, how often it has been mutated (its epoch)
// and how many strict borrows are outstanding.
//
// # Lifecycle
//
//	ledger := resource.NewLedger()
//
//	// Record ownership of a freshly allocated block
//	h, err := ledger.Claim(addr)
//
//	// Record a mutation; views taken at an older epoch are stale
//	epoch, err := ledger.Advance(h)
//
//	// End ownership; the address comes back exactly once
//	addr, err := ledger.Release(h)
//
// A second Claim on a live address fails with ErrAlreadyOwned, and a second
// Release fails with ErrUnknownHandle, so a block cannot have two owners or be
// freed twice through the ledger.
//
// # Borrows
//
// Borrow and ReturnBorrow count strict borrows. While any are outstanding,
// Advance and Release fail with ErrOutstandingBorrow.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	ledger.Subscribe(myObserver)
//
// Observers are compared with == by Unsubscribe, so they should be pointers.
package resource
