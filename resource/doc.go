// Package resource provides handle tables for Go values that native code refers to.
//
// Native code cannot hold Go pointers across calls, so every Go value that
// crosses the boundary (a parallel-for body, a kernel instance created by a
// custom operator) is stored in a table and represented by a small integer
// handle. The handle travels through void* user-data slots and comes back to
// Go through a trampoline, which resolves it to the original value.
//
// # Handle Table
//
// The UnifiedTable maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, ok := table.GetTyped(handle, typeID)
//
//	// Remove and get value
//	value, ok := table.Remove(handle)
//
// Handle 0 is never issued, so a zero user-data pointer is always invalid.
// Freed slots are reused, but each reuse bumps the slot's generation, which
// is encoded in the handle. A handle native code kept past Remove therefore
// resolves to nothing instead of to whatever took its slot.
//
// # Borrows
//
// Borrow pins a value for the duration of a native callback. Remove refuses
// to drop a value with outstanding borrows, which keeps a kernel alive while
// the runtime is still computing with it:
//
//	k, ok := kernels.Borrow(h)
//	defer kernels.Return(h)
//
// # Typed Views
//
// Typed restricts a table to one resource type:
//
//	jobs := resource.NewTyped[*Job](table, jobTypeID)
//	h := jobs.Insert(job)
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventDropped {
//	        log.Printf("resource %d dropped", e.Handle)
//	    }
//	}))
package resource
