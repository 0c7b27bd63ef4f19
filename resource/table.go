package resource

import (
	"sync"
)

// UnifiedTable implements the Table interface using a LocalBackend for storage.
// It is safe for concurrent use; native thread pools call into it from
// arbitrary threads.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 when the table is full.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Borrow retrieves a typed value and pins it: Remove fails until Return.
func (t *UnifiedTable) Borrow(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	if !t.backend.Borrow(handle) {
		return nil, false
	}
	value, ok := t.backend.Get(handle)
	if !ok {
		t.backend.ReturnBorrow(handle)
		return nil, false
	}

	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, true
}

// Return ends a borrow started with Borrow.
func (t *UnifiedTable) Return(handle Handle) {
	if !t.backend.ReturnBorrow(handle) {
		return
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: handle,
		TypeID: typeID,
	})
}

// Remove drops a resource and returns (value, true) if found.
// A resource with outstanding borrows is not removed.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of active resources.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Count returns the number of active resources of one type.
func (t *UnifiedTable) Count(typeID uint32) int {
	n := 0
	t.backend.Each(func(_ Handle, id uint32, _ any) bool {
		if id == typeID {
			n++
		}
		return true
	})
	return n
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Typed is a view of a Table restricted to one resource type.
type Typed[T any] struct {
	table  Table
	typeID uint32
}

// NewTyped returns a typed view over table for typeID.
func NewTyped[T any](table Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Borrow retrieves a value and pins it until Return.
func (t *Typed[T]) Borrow(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.Borrow(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		t.table.Return(handle)
		return zero, false
	}
	return typed, true
}

// Return ends a borrow.
func (t *Typed[T]) Return(handle Handle) {
	t.table.Return(handle)
}

// Len returns the number of active resources of this type.
func (t *Typed[T]) Len() int {
	return t.table.Count(t.typeID)
}

// Remove drops a resource and returns (value, true) if found.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
