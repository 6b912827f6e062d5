package resource

import (
	"sync"
)

// Ledger tracks which native blocks are owned, their mutation epochs and
// their outstanding borrows, and reports every change to observers.
type Ledger struct {
	backend   Backend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewLedger creates a new ledger with a LocalBackend.
func NewLedger() *Ledger {
	return NewLedgerWithBackend(NewLocalBackend())
}

// NewLedgerWithBackend creates a ledger over a custom backend.
func NewLedgerWithBackend(backend Backend) *Ledger {
	return &Ledger{
		backend: backend,
	}
}

// Claim records exclusive ownership of addr.
func (l *Ledger) Claim(addr uint64) (Handle, error) {
	handle, err := l.backend.Claim(addr)
	if err != nil {
		return 0, err
	}

	l.notify(Event{
		Type:   EventClaimed,
		Handle: handle,
		Addr:   addr,
	})

	return handle, nil
}

// Addr returns the native address owned through handle.
func (l *Ledger) Addr(handle Handle) (uint64, bool) {
	return l.backend.Addr(handle)
}

// Epoch returns the mutation counter of handle.
func (l *Ledger) Epoch(handle Handle) (uint64, bool) {
	return l.backend.Epoch(handle)
}

// Borrows returns the outstanding borrow count of handle.
func (l *Ledger) Borrows(handle Handle) (uint32, bool) {
	return l.backend.Borrows(handle)
}

// Advance records a mutation of the block owned through handle.
func (l *Ledger) Advance(handle Handle) (uint64, error) {
	epoch, err := l.backend.Advance(handle)
	if err != nil {
		return epoch, err
	}

	addr, _ := l.backend.Addr(handle)
	l.notify(Event{
		Type:   EventMutated,
		Handle: handle,
		Addr:   addr,
		Epoch:  epoch,
	})

	return epoch, nil
}

// Borrow registers a strict borrow on handle.
func (l *Ledger) Borrow(handle Handle) bool {
	if !l.backend.Borrow(handle) {
		return false
	}

	l.notifyBorrow(EventBorrowed, handle)
	return true
}

// ReturnBorrow ends a strict borrow on handle.
func (l *Ledger) ReturnBorrow(handle Handle) bool {
	if !l.backend.ReturnBorrow(handle) {
		return false
	}

	l.notifyBorrow(EventBorrowReturned, handle)
	return true
}

// Release ends ownership and returns the native address to free.
func (l *Ledger) Release(handle Handle) (uint64, error) {
	epoch, _ := l.backend.Epoch(handle)
	addr, err := l.backend.Release(handle)
	if err != nil {
		return 0, err
	}

	l.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Addr:   addr,
		Epoch:  epoch,
	})

	return addr, nil
}

// Subscribe adds an observer for lifecycle events.
func (l *Ledger) Subscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, o)
}

// Unsubscribe removes an observer.
func (l *Ledger) Unsubscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	for i, obs := range l.observers {
		if obs == o {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of owned blocks.
func (l *Ledger) Len() int {
	return l.backend.Len()
}

// Each iterates over all owned blocks.
func (l *Ledger) Each(fn func(h Handle, addr uint64, borrows uint32) bool) {
	l.backend.Each(fn)
}

// Close stops accepting claims and returns the addresses still owned.
func (l *Ledger) Close() []uint64 {
	return l.backend.Close()
}

func (l *Ledger) notifyBorrow(t EventType, handle Handle) {
	addr, _ := l.backend.Addr(handle)
	borrows, _ := l.backend.Borrows(handle)
	l.notify(Event{
		Type:    t,
		Handle:  handle,
		Addr:    addr,
		Borrows: borrows,
	})
}

func (l *Ledger) notify(e Event) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o.OnLedgerEvent(e)
	}
}
