package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	// Insert
	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	// GetTyped with correct type
	val, ok := table.GetTyped(h, 1)
	if !ok || val != "test" {
		t.Fatalf("GetTyped = %v, %v; want test, true", val, ok)
	}

	// GetTyped with wrong type
	_, ok = table.GetTyped(h, 2)
	if ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	// Remove
	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	// Len should be 0
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	// Insert should trigger EventCreated
	h := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	// Remove should trigger EventDropped
	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}
}

func TestUnifiedTable_Borrow(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(7, "kernel")

	if _, ok := table.Borrow(h, 8); ok {
		t.Fatal("Borrow with wrong type should fail")
	}

	val, ok := table.Borrow(h, 7)
	if !ok || val != "kernel" {
		t.Fatalf("Borrow = %v, %v", val, ok)
	}

	if _, ok := table.Remove(h); ok {
		t.Fatal("Remove should fail while borrowed")
	}

	table.Return(h)
	if _, ok := table.Remove(h); !ok {
		t.Fatal("Remove should succeed after Return")
	}

	want := []EventType{EventCreated, EventBorrowed, EventBorrowReturned, EventDropped}
	if len(obs.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(obs.events))
	}
	for i, e := range obs.events {
		if e.Type != want[i] {
			t.Fatalf("event %d: got %v, want %v", i, e.Type, want[i])
		}
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	fns := NewTyped[func(int)](table, 1)
	names := NewTyped[string](table, 2)

	calls := 0
	h := fns.Insert(func(int) { calls++ })
	n := names.Insert("other")

	fn, ok := fns.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	fn(0)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	if _, ok := fns.Get(n); ok {
		t.Fatal("typed view must not return values of another type")
	}
	if fns.Len() != 1 || names.Len() != 1 || table.Count(3) != 0 {
		t.Fatalf("per-type counts = %d/%d/%d, want 1/1/0", fns.Len(), names.Len(), table.Count(3))
	}
	if _, ok := fns.Remove(n); ok {
		t.Fatal("typed view must not remove values of another type")
	}

	if _, ok := fns.Borrow(h); !ok {
		t.Fatal("Borrow failed")
	}
	if _, ok := fns.Remove(h); ok {
		t.Fatal("Remove should fail while borrowed")
	}
	fns.Return(h)
	if _, ok := fns.Remove(h); !ok {
		t.Fatal("Remove failed")
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 remaining resource, got %d", table.Len())
	}
}

func TestObserverFunc(t *testing.T) {
	table := NewTable()
	var got []EventType
	table.Subscribe(ObserverFunc(func(e Event) { got = append(got, e.Type) }))

	h := table.Insert(1, 1)
	table.Remove(h)

	if len(got) != 2 || got[0] != EventCreated || got[1] != EventDropped {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestHandlePointerRoundTrip(t *testing.T) {
	h := Handle(42)
	if HandleFromPointer(h.Pointer()) != h {
		t.Fatal("handle must survive a trip through a native user-data slot")
	}
}
