package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("ledger closed")
	ErrUnknownHandle     = errors.New("unknown or released handle")
	ErrAlreadyOwned      = errors.New("native block already owned")
	ErrOutstandingBorrow = errors.New("operation refused with outstanding borrows")
)

var _ Backend = (*LocalBackend)(nil)

// LocalBackend is an in-memory ledger backend with borrow tracking.
type LocalBackend struct {
	byAddr   map[uint64]Handle
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	addr        uint64
	epoch       uint64
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		byAddr:   make(map[uint64]Handle, 16),
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

// Claim records exclusive ownership of addr.
// The null address and addresses that are already owned are rejected.
func (b *LocalBackend) Claim(addr uint64) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if addr == 0 {
		return 0, ErrUnknownHandle
	}
	if _, taken := b.byAddr[addr]; taken {
		return 0, ErrAlreadyOwned
	}

	e := entry{
		addr:  addr,
		valid: true,
	}

	var handle Handle
	if len(b.freeList) > 0 {
		handle = b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
	} else {
		b.entries = append(b.entries, e)
		handle = Handle(len(b.entries))
	}

	b.byAddr[addr] = handle
	return handle, nil
}

// lookup returns the live entry for handle. Caller holds b.mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return nil
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

// Addr returns the native address owned through handle.
func (b *LocalBackend) Addr(handle Handle) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.addr, true
}

// Epoch returns the mutation counter of handle.
func (b *LocalBackend) Epoch(handle Handle) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.epoch, true
}

// Borrows returns the outstanding borrow count of handle.
func (b *LocalBackend) Borrows(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.borrowCount, true
}

// Advance bumps the epoch of handle and returns the new value.
func (b *LocalBackend) Advance(handle Handle) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, ErrUnknownHandle
	}
	if e.borrowCount > 0 {
		return e.epoch, ErrOutstandingBorrow
	}

	e.epoch++
	return e.epoch, nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}

	e.borrowCount++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return false
	}

	e.borrowCount--
	return true
}

// Release ends ownership of handle and returns the address it owned.
// A handle is released at most once; later calls get ErrUnknownHandle.
func (b *LocalBackend) Release(handle Handle) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, ErrUnknownHandle
	}
	if e.borrowCount > 0 {
		return 0, ErrOutstandingBorrow
	}

	addr := e.addr
	delete(b.byAddr, addr)
	*e = entry{}
	b.freeList = append(b.freeList, handle)

	return addr, nil
}

// Close invalidates all entries and returns the addresses that were still
// owned, so the caller can free them.
func (b *LocalBackend) Close() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var leaked []uint64
	for i := range b.entries {
		if b.entries[i].valid {
			leaked = append(leaked, b.entries[i].addr)
			b.entries[i] = entry{}
		}
	}

	b.entries = nil
	b.freeList = nil
	b.byAddr = nil
	return leaked
}

// Len returns the number of owned blocks.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byAddr)
}

// Each iterates over all owned blocks.
func (b *LocalBackend) Each(fn func(h Handle, addr uint64, borrows uint32) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.addr, e.borrowCount) {
				break
			}
		}
	}
}
