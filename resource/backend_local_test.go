package resource

import (
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	fn := func(int) {}
	handle, err := b.Create(1, fn)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if _, isFn := val.(func(int)); !isFn {
		t.Fatalf("Expected func(int), got %T", val)
	}

	typeID, ok := b.TypeID(handle)
	if !ok || typeID != 1 {
		t.Fatalf("TypeID = %d, %v; want 1, true", typeID, ok)
	}

	if _, ok = b.Drop(handle); !ok {
		t.Fatal("Drop failed")
	}
	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
}

func TestLocalBackend_Borrow(t *testing.T) {
	b := NewLocalBackend()

	handle, _ := b.Create(1, "kernel")

	for i := 0; i < 3; i++ {
		if !b.Borrow(handle) {
			t.Fatalf("Borrow %d failed", i)
		}
	}

	if _, ok := b.Drop(handle); ok {
		t.Fatal("Drop should fail with outstanding borrows")
	}

	for i := 0; i < 3; i++ {
		if !b.ReturnBorrow(handle) {
			t.Fatalf("ReturnBorrow %d failed", i)
		}
	}
	if b.ReturnBorrow(handle) {
		t.Fatal("ReturnBorrow without borrow should fail")
	}

	if _, ok := b.Drop(handle); !ok {
		t.Fatal("Drop should succeed after returning all borrows")
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(1, 1)
	h2, _ := b.Create(1, 2)
	h3, _ := b.Create(1, 3)

	b.Drop(h2)
	b.Drop(h1)

	h4, _ := b.Create(1, 4)
	if h4.Slot() != h1.Slot() {
		t.Fatalf("Expected slot %d to be reused, got %d", h1.Slot(), h4.Slot())
	}
	if h4 == h1 {
		t.Fatal("Reused slot should carry a new generation")
	}
	if _, ok := b.Get(h1); ok {
		t.Fatal("Stale handle should not resolve to the reused slot")
	}
	if b.Borrow(h1) {
		t.Fatal("Stale handle should fail Borrow")
	}
	if _, ok := b.Drop(h1); ok {
		t.Fatal("Stale handle should fail Drop")
	}
	if h5, _ := b.Create(1, 5); h5.Slot() != h2.Slot() {
		t.Fatalf("Expected slot %d to be reused, got %d", h2.Slot(), h5.Slot())
	}

	if v, ok := b.Get(h3); !ok || v != 3 {
		t.Fatal("h3 should still be valid")
	}
	if v, ok := b.Get(h4); !ok || v != 4 {
		t.Fatal("h4 should hold the new value")
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, _ := b.Create(1, id)
			b.Borrow(h)
			b.ReturnBorrow(h)
			b.Drop(h)
		}(i)
	}

	wg.Wait()
	if b.Len() != 0 {
		t.Fatalf("Expected empty backend, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create(1, "a")
	b.Create(2, "b")
	b.Create(1, "c")

	count := 0
	b.Each(func(h Handle, typeID uint32, value any) bool {
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	b.Each(func(h Handle, typeID uint32, value any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if b.Borrow(0) {
		t.Fatal("Handle 0 should fail Borrow")
	}
	if b.ReturnBorrow(0) {
		t.Fatal("Handle 0 should fail ReturnBorrow")
	}
	if _, ok := b.Drop(0); ok {
		t.Fatal("Handle 0 should fail Drop")
	}
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}

func TestLocalBackend_GenerationWraps(t *testing.T) {
	b := NewLocalBackend()

	first, _ := b.Create(1, 0)
	h := first
	for i := 0; i < 256; i++ {
		if _, ok := b.Drop(h); !ok {
			t.Fatalf("Drop %d failed", i)
		}
		h, _ = b.Create(1, i)
		if h == 0 {
			t.Fatalf("Create %d returned the zero handle", i)
		}
		if h.Slot() != first.Slot() {
			t.Fatalf("Expected slot %d, got %d", first.Slot(), h.Slot())
		}
	}
	if h != first {
		t.Fatalf("Generation should wrap after 256 reuses: got %#x, want %#x", h, first)
	}
}

func TestHandleFromPointer(t *testing.T) {
	if HandleFromPointer(0) != 0 {
		t.Fatal("zero pointer should map to handle 0")
	}
	h := makeHandle(7, 3)
	if got := HandleFromPointer(h.Pointer()); got != h {
		t.Fatalf("round trip: got %#x, want %#x", got, h)
	}
	if h.Slot() != 7 || h.Generation() != 3 {
		t.Fatalf("slot/generation = %d/%d, want 7/3", h.Slot(), h.Generation())
	}
}
