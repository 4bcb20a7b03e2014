// Package typedarena implements typed bump allocators (arenas) with stable
// handles and checkpoint/rollback.
//
// # Overview
//
// An arena stores many values of one type in contiguous memory and hands out
// small integer handles (Idx) instead of pointers. Allocation is O(1), values
// sit next to each other in memory, and a whole suffix of allocations can be
// discarded at once by rolling back to a Checkpoint. This suits:
//
//   - Parser and AST nodes
//   - Simulation frames
//   - Request-scoped objects
//
// # Arena types
//
//   - Arena: single goroutine, backed by a growable slice
//   - FastArena: lock-free allocation from many goroutines into a
//     fixed-capacity buffer, wait-free reads, contiguous slices
//   - SyncArena: Arena behind a mutex, grows on demand
//
// All three share Idx and Checkpoint.
//
// # Basic Usage
//
//	a := typedarena.NewArena[string](0)
//	x := a.Alloc("hello")
//	y := a.Alloc("world")
//	fmt.Println(a.Get(x), a.Get(y))
//
//	cp := a.Checkpoint()
//	a.Alloc("temporary")
//	a.Rollback(cp) // "temporary" is discarded
//
// # Concurrent Allocation
//
//	fa := typedarena.NewFastArena[int](1024)
//	var wg sync.WaitGroup
//	for i := range 8 {
//		wg.Add(1)
//		go func() {
//			defer wg.Done()
//			fa.Alloc(i)
//		}()
//	}
//	wg.Wait()
//	fmt.Println(len(fa.AsSlice())) // 8
//
// A FastArena never grows implicitly. Allocating past its capacity panics
// with ErrArenaFull (TryAlloc returns it instead). Call Grow or GrowTo while
// no allocation is running.
//
// # Handles
//
// Handles carry no reference to the arena that produced them. Using a handle
// with another arena of the same element type either panics with an
// out-of-range error or reads an unrelated value; this is a caller contract
// and is not checked.
//
// # Destruction
//
// Go has no destructors. If the element type implements Dropper, arenas call
// Drop on each value they discard (Rollback, Reset, Release), in reverse
// allocation order. Discarded slots are zeroed so the garbage collector can
// reclaim what they referenced.
//
// # Metrics and Monitoring
//
// Every arena reports a Metrics snapshot. The promarena package exports
// them to Prometheus.
package typedarena
