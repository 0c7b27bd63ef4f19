package resource

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by Create when every slot is in use.
var ErrExhausted = errors.New("resource backend has no free slots")

// A handle packs a slot number (low 24 bits, 1-based) with the slot's
// generation (high 8 bits). Reusing a slot bumps its generation, so a handle
// native code kept after Drop no longer resolves.
const (
	slotBits = 24
	slotMask = 1<<slotBits - 1
	maxSlots = slotMask
)

func makeHandle(slot int, gen uint8) Handle {
	return Handle(uint32(gen)<<slotBits | uint32(slot+1))
}

// Slot returns the table slot the handle refers to.
func (h Handle) Slot() int {
	return int(h&slotMask) - 1
}

// Generation returns the reuse count of the handle's slot when it was issued.
func (h Handle) Generation() uint8 {
	return uint8(h >> slotBits)
}

// LocalBackend is an in-memory resource backend with borrow tracking.
// Lookups take a read lock; parallel-for trampolines resolve handles from
// many native threads at once.
type LocalBackend struct {
	slots []slot
	free  []int
	live  int
	mu    sync.RWMutex
}

type slot struct {
	value   any
	typeID  uint32
	borrows uint32
	gen     uint8
	used    bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{slots: make([]slot, 0, 64)}
}

// lookup returns the slot h refers to, or nil when h is stale or unknown.
// Callers hold b.mu.
func (b *LocalBackend) lookup(h Handle) *slot {
	i := h.Slot()
	if h == 0 || i < 0 || i >= len(b.slots) {
		return nil
	}
	s := &b.slots[i]
	if !s.used || s.gen != h.Generation() {
		return nil
	}
	return s
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var i int
	switch {
	case len(b.free) > 0:
		i = b.free[len(b.free)-1]
		b.free = b.free[:len(b.free)-1]
	case len(b.slots) < maxSlots:
		b.slots = append(b.slots, slot{})
		i = len(b.slots) - 1
	default:
		return 0, ErrExhausted
	}

	s := &b.slots[i]
	s.value, s.typeID, s.borrows, s.used = value, typeID, 0, true
	b.live++
	return makeHandle(i, s.gen), nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if s := b.lookup(handle); s != nil {
		return s.value, true
	}
	return nil, false
}

// Drop removes a resource and returns (value, true) if destructor should be called.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil || s.borrows > 0 {
		return nil, false
	}

	value := s.value
	*s = slot{gen: s.gen + 1}
	b.free = append(b.free, handle.Slot())
	b.live--
	return value, true
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil {
		return false
	}
	s.borrows++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil || s.borrows == 0 {
		return false
	}
	s.borrows--
	return true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if s := b.lookup(handle); s != nil {
		return s.typeID, true
	}
	return 0, false
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each calls fn for every active resource until fn returns false.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.slots {
		s := &b.slots[i]
		if s.used && !fn(makeHandle(i, s.gen), s.typeID, s.value) {
			return
		}
	}
}
