package resource

// Handle is an opaque reference to a ledger entry.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for native block lifecycle notifications.
type EventType uint8

const (
	EventClaimed EventType = iota
	EventReleased
	EventBorrowed
	EventBorrowReturned
	EventMutated
)

func (t EventType) String() string {
	switch t {
	case EventClaimed:
		return "claimed"
	case EventReleased:
		return "released"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	case EventMutated:
		return "mutated"
	default:
		return "unknown"
	}
}

// Event represents a native block lifecycle event.
type Event struct {
	Addr    uint64
	Epoch   uint64
	Handle  Handle
	Borrows uint32
	Type    EventType
}

// Observer receives notifications about native block lifecycle events.
type Observer interface {
	OnLedgerEvent(Event)
}

// Backend stores ownership, epoch and borrow state per native block.
type Backend interface {
	// Claim records exclusive ownership of addr and returns its handle.
	Claim(addr uint64) (Handle, error)

	// Addr returns the native address owned through handle.
	Addr(handle Handle) (uint64, bool)

	// Epoch returns the mutation counter of handle.
	Epoch(handle Handle) (uint64, bool)

	// Borrows returns the outstanding borrow count of handle.
	Borrows(handle Handle) (uint32, bool)

	// Advance bumps the epoch. Fails while borrows are outstanding.
	Advance(handle Handle) (uint64, error)

	// Borrow increments the borrow count for a handle.
	Borrow(handle Handle) bool

	// ReturnBorrow decrements the borrow count for a handle.
	ReturnBorrow(handle Handle) bool

	// Release ends ownership and returns the address exactly once.
	// Fails while borrows are outstanding.
	Release(handle Handle) (uint64, error)

	// Close invalidates every entry and returns the addresses still owned.
	Close() []uint64

	// Len returns the number of owned blocks.
	Len() int

	// Each iterates over owned blocks until fn returns false.
	Each(fn func(h Handle, addr uint64, borrows uint32) bool)
}
