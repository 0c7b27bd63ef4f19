package resource

// Handle is an opaque reference to a Go value held in a table.
// Handle 0 is reserved and always invalid, so native code can treat it as NULL.
type Handle uint32

// Pointer returns the handle in the form native code stores in a void* slot.
func (h Handle) Pointer() uintptr {
	return uintptr(h)
}

// HandleFromPointer recovers a handle from a native user-data value.
// Values wider than a handle map to 0.
func HandleFromPointer(p uintptr) Handle {
	if uint64(p) > uint64(^Handle(0)) {
		return 0
	}
	return Handle(p)
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Table manages resources with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID uint32, value any) Handle

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Borrow retrieves a typed value and pins it against Remove until Return.
	Borrow(handle Handle, typeID uint32) (any, bool)

	// Return ends a borrow started with Borrow.
	Return(handle Handle)

	// Remove drops a resource and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Len returns the number of active resources.
	Len() int

	// Count returns the number of active resources of one type.
	Count(typeID uint32) int
}
