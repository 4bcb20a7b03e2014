package typedarena

import (
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// DefaultCapacity is the capacity of a FastArena created with capacity <= 0.
const DefaultCapacity = 64

// slots is the fixed-size backing storage of a FastArena.
// ready[i] is set once data[i] has been written.
type slots[T any] struct {
	data  []T
	ready []atomic.Bool
}

func newSlots[T any](capacity int) *slots[T] {
	return &slots[T]{
		data:  make([]T, capacity),
		ready: make([]atomic.Bool, capacity),
	}
}

// FastArena is a typed bump allocator that supports lock-free allocation
// from many goroutines at once.
//
// Allocation reserves slots by advancing an atomic cursor, writes the value
// into the reserved slot and marks it ready. Slots can become ready out of
// order, so a separate published boundary tracks the longest fully written
// prefix; AsSlice and iteration only ever expose that prefix.
//
// Capacity is fixed between calls to Grow or GrowTo. Allocating into a full
// arena panics with ErrArenaFull; it never grows implicitly.
//
// Methods fall into three groups:
//   - Allocation (Alloc, TryAlloc, AllocSlice, AllocExtend) may run
//     concurrently with each other and with reads.
//   - Reads (Get, TryGet, IsValid, AsSlice, All, Indexed, Len, ...) never
//     wait on other readers or allocators. Len and AsSlice take the shared
//     side of the gate to move the published boundary, so they wait for an
//     exclusive operation in progress. Get is valid for any handle obtained
//     from a completed allocation, either directly or through a channel,
//     WaitGroup or other synchronisation with the allocating goroutine.
//   - Exclusive operations (Grow, GrowTo, Set, TrySet, Update, Modify, Mut,
//     IndexedMut, Rollback, Reset, Drain, Release) wait for in-flight
//     allocations and block new ones. The caller must not read affected
//     slots concurrently.
type FastArena[T any] struct {
	// mu gates exclusive operations against allocation. Allocators hold the
	// read side for the duration of one reservation.
	mu    sync.RWMutex
	store atomic.Pointer[slots[T]]
	drop  dropFn[T]
	log   *slog.Logger

	_         cpu.CacheLinePad
	cursor    atomic.Int64 // next unreserved slot
	_         cpu.CacheLinePad
	published atomic.Int64 // every slot below is written
	_         cpu.CacheLinePad

	stats atomicCounters
}

// NewFastArena creates a FastArena holding up to capacity values.
// If capacity <= 0, DefaultCapacity is used.
func NewFastArena[T any](capacity int, opts ...Option) *FastArena[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cfg := newConfig(opts)
	a := &FastArena[T]{
		drop: resolveDrop[T](),
		log:  cfg.logger,
	}
	a.store.Store(newSlots[T](capacity))
	return a
}

// FastArenaFrom collects seq into a new FastArena sized to fit it exactly.
func FastArenaFrom[T any](seq iter.Seq[T], opts ...Option) *FastArena[T] {
	vs := slices.Collect(seq)
	a := NewFastArena[T](max(len(vs), 1), opts...)
	a.AllocSlice(vs)
	return a
}

func (a *FastArena[T]) storage() *slots[T] {
	st := a.store.Load()
	if st == nil {
		panicReleased()
	}
	return st
}

// reserve claims n consecutive slots. Concurrent callers always receive
// disjoint ranges. It fails without side effects if fewer than n slots are
// left, so the cursor never passes the capacity.
func (a *FastArena[T]) reserve(st *slots[T], n int) (int, bool) {
	capacity := int64(len(st.data))
	for {
		c := a.cursor.Load()
		if c+int64(n) > capacity {
			return int(c), false
		}
		if a.cursor.CompareAndSwap(c, c+int64(n)) {
			return int(c), true
		}
	}
}

// advance moves the published boundary over every ready slot that directly
// follows it. It stops at the first slot that is not ready; the writer of
// that slot advances further once it is done. Losing a CAS just means
// another goroutine made progress, so the loop re-reads and continues.
//
// Callers must hold the read side of the gate. A CAS decided before a
// Rollback would otherwise land after it and push published past the cursor.
func (a *FastArena[T]) advance(st *slots[T]) {
	for {
		p := a.published.Load()
		if p >= int64(len(st.ready)) || !st.ready[p].Load() {
			return
		}
		a.published.CompareAndSwap(p, p+1)
	}
}

// publish advances the published boundary under the read side of the gate
// and returns the current storage with the published count. The storage is
// nil once the arena has been released.
func (a *FastArena[T]) publish() (*slots[T], int) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := a.store.Load()
	if st != nil {
		a.advance(st)
	}
	return st, int(a.published.Load())
}

func fullError(n, reserved, capacity int) error {
	return fmt.Errorf("%w: %d slot(s) requested at %d, capacity %d", ErrArenaFull, n, reserved, capacity)
}

// Alloc stores v and returns its handle. Safe for concurrent use. Lock-free
// apart from the gate that excludes Grow, Rollback and friends.
//
// Alloc panics with an error wrapping ErrArenaFull if the arena is full.
func (a *FastArena[T]) Alloc(v T) Idx[T] {
	idx, err := a.TryAlloc(v)
	if err != nil {
		a.log.Error("arena full", "requested", 1, "capacity", a.Cap())
		panic(err)
	}
	return idx
}

// TryAlloc is like Alloc but returns ErrArenaFull instead of panicking.
// A failed call leaves the arena unchanged.
func (a *FastArena[T]) TryAlloc(v T) (Idx[T], error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := a.storage()
	i, ok := a.reserve(st, 1)
	if !ok {
		return 0, fullError(1, i, len(st.data))
	}
	// The slot is ours alone until the arena is rolled back.
	st.data[i] = v
	st.ready[i].Store(true)
	a.advance(st)
	a.stats.allocs.Add(1)
	return Idx[T](i), nil
}

// AllocSlice stores all of vs in consecutive slots using a single
// reservation and returns the handle of the first one. It returns false if
// vs is empty and panics with ErrArenaFull if vs does not fit, in which case
// nothing is allocated.
func (a *FastArena[T]) AllocSlice(vs []T) (Idx[T], bool) {
	if len(vs) == 0 {
		return 0, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	st := a.storage()
	start, ok := a.reserve(st, len(vs))
	if !ok {
		a.log.Error("arena full", "requested", len(vs), "capacity", len(st.data))
		panic(fullError(len(vs), start, len(st.data)))
	}
	for j, v := range vs {
		st.data[start+j] = v
		st.ready[start+j].Store(true)
	}
	a.advance(st)
	a.stats.allocs.Add(uint64(len(vs)))
	return Idx[T](start), true
}

// AllocExtend collects seq and allocates it like AllocSlice.
func (a *FastArena[T]) AllocExtend(seq iter.Seq[T]) (Idx[T], bool) {
	return a.AllocSlice(slices.Collect(seq))
}

// Get returns the value at idx. It panics if idx has not been reserved.
// Get does not consult readiness markers: the caller must have obtained idx
// from a completed allocation (see the type documentation).
func (a *FastArena[T]) Get(idx Idx[T]) T {
	i := int(idx)
	n := int(a.cursor.Load())
	if uint(i) >= uint(n) {
		panicOutOfRange(i, n)
	}
	return a.storage().data[i]
}

// TryGet returns the value at idx, or false if idx has not been reserved.
func (a *FastArena[T]) TryGet(idx Idx[T]) (T, bool) {
	if !a.IsValid(idx) {
		var zero T
		return zero, false
	}
	st := a.store.Load()
	if st == nil {
		var zero T
		return zero, false
	}
	return st.data[idx], true
}

// IsValid reports whether idx has been reserved in this arena.
func (a *FastArena[T]) IsValid(idx Idx[T]) bool {
	return uint(idx) < uint(a.cursor.Load())
}

// Len returns the number of published values.
func (a *FastArena[T]) Len() int {
	_, n := a.publish()
	return n
}

// IsEmpty reports whether no values are published.
func (a *FastArena[T]) IsEmpty() bool {
	return a.Len() == 0
}

// Reserved returns the number of slots handed out, including slots whose
// values are still being written.
func (a *FastArena[T]) Reserved() int {
	return int(a.cursor.Load())
}

// Cap returns the number of slots available before the arena must grow.
func (a *FastArena[T]) Cap() int {
	st := a.store.Load()
	if st == nil {
		return 0
	}
	return len(st.data)
}

// AsSlice returns the published values as one contiguous slice. Every
// element is fully written. Values allocated concurrently may be missing;
// the slice never has gaps.
func (a *FastArena[T]) AsSlice() []T {
	st, n := a.publish()
	if st == nil {
		return nil
	}
	return st.data[:n:n]
}

// All yields the published values in allocation order.
func (a *FastArena[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range a.AsSlice() {
			if !yield(v) {
				return
			}
		}
	}
}

// Indexed yields (handle, value) pairs for the published values.
func (a *FastArena[T]) Indexed() iter.Seq2[Idx[T], T] {
	return func(yield func(Idx[T], T) bool) {
		for i, v := range a.AsSlice() {
			if !yield(Idx[T](i), v) {
				return
			}
		}
	}
}

// ToSlice returns a copy of the published values.
func (a *FastArena[T]) ToSlice() []T {
	s := a.AsSlice()
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Checkpoint saves the current reservation count. Reserved but unpublished
// slots are included so that Rollback can reclaim them.
func (a *FastArena[T]) Checkpoint() Checkpoint[T] {
	return Checkpoint[T](a.cursor.Load())
}

// Set replaces the value at idx. Exclusive. It panics if idx has not been
// reserved. The previous value is overwritten without being dropped.
func (a *FastArena[T]) Set(idx Idx[T], v T) {
	a.Update(idx, func(p *T) { *p = v })
}

// TrySet replaces the value at idx and reports whether idx was reserved.
// Exclusive.
func (a *FastArena[T]) TrySet(idx Idx[T], v T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.slotLocked(idx)
	if ok {
		*p = v
	}
	return ok
}

// Update calls fn with a pointer to the value at idx. Exclusive. It panics
// if idx has not been reserved. fn must not call back into the arena.
func (a *FastArena[T]) Update(idx Idx[T], fn func(*T)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.slotLocked(idx)
	if !ok {
		panicOutOfRange(int(idx), int(a.cursor.Load()))
	}
	fn(p)
}

func (a *FastArena[T]) slotLocked(idx Idx[T]) (*T, bool) {
	st := a.storage()
	if uint(idx) >= uint(a.cursor.Load()) {
		return nil, false
	}
	return &st.data[idx], true
}

// IndexedMut yields (handle, pointer) pairs for every reserved slot while
// holding the exclusive gate. The loop body must not call back into the
// arena.
func (a *FastArena[T]) IndexedMut() iter.Seq2[Idx[T], *T] {
	return func(yield func(Idx[T], *T) bool) {
		a.mu.Lock()
		defer a.mu.Unlock()

		st := a.storage()
		n := int(a.cursor.Load())
		for i := range n {
			if !yield(Idx[T](i), &st.data[i]) {
				return
			}
		}
	}
}

// Mut yields a pointer to every reserved value in allocation order while
// holding the exclusive gate.
func (a *FastArena[T]) Mut() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, p := range a.IndexedMut() {
			if !yield(p) {
				return
			}
		}
	}
}

// Modify calls fn with every reserved value as one mutable slice. Exclusive.
// The slice must not be retained after fn returns.
func (a *FastArena[T]) Modify(fn func([]T)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := int(a.cursor.Load())
	fn(a.storage().data[:n:n])
}

// Grow doubles the capacity. Exclusive. Existing handles stay valid.
func (a *FastArena[T]) Grow() {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.storage()
	if len(st.data) > math.MaxInt/2 {
		panic("typedarena: capacity overflow")
	}
	a.growLocked(st, max(2*len(st.data), 1))
}

// GrowTo grows the arena to hold at least minCapacity values. Exclusive.
// It is a no-op if the capacity is already sufficient.
func (a *FastArena[T]) GrowTo(minCapacity int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.growLocked(a.storage(), minCapacity)
}

// growLocked moves every reserved value and its marker to new storage. The
// cursor and published boundary are unchanged.
func (a *FastArena[T]) growLocked(st *slots[T], capacity int) {
	if capacity <= len(st.data) {
		return
	}
	n := int(a.cursor.Load())
	next := newSlots[T](capacity)
	copy(next.data, st.data[:n])
	for i := range n {
		next.ready[i].Store(st.ready[i].Load())
	}
	a.store.Store(next)
	a.stats.grows.Add(1)
	a.log.Debug("arena grown", "from", len(st.data), "to", capacity, "reserved", n)
}

// Rollback discards every value reserved after cp, dropping them in reverse
// allocation order. Exclusive. Rolling back to a checkpoint at or beyond the
// current reservation count is a no-op.
func (a *FastArena[T]) Rollback(cp Checkpoint[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rollbackLocked(max(int(cp), 0))
}

// Reset discards every value. Exclusive. Capacity is retained.
func (a *FastArena[T]) Reset() {
	a.Rollback(0)
}

func (a *FastArena[T]) rollbackLocked(n int) {
	st := a.storage()
	cur := int(a.cursor.Load())
	if n >= cur {
		return
	}
	dropped := discard(st.data, n, cur, a.drop)
	for i := cur - 1; i >= n; i-- {
		st.ready[i].Store(false)
	}
	a.cursor.Store(int64(n))
	if a.published.Load() > int64(n) {
		a.published.Store(int64(n))
	}
	a.stats.rollbacks.Add(1)
	a.stats.dropped.Add(uint64(dropped))
	a.log.Debug("arena rolled back", "checkpoint", n, "dropped", dropped)
}

// Drain moves every reserved value out of the arena in allocation order.
// Exclusive. The arena is left empty with its capacity intact. Drained
// values are not dropped.
func (a *FastArena[T]) Drain() []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.storage()
	n := int(a.cursor.Load())
	out := make([]T, n)
	copy(out, st.data[:n])
	clear(st.data[:n])
	for i := range n {
		st.ready[i].Store(false)
	}
	a.cursor.Store(0)
	a.published.Store(0)
	a.log.Debug("arena drained", "values", n)
	return out
}

// Release drops every value and discards the storage. Exclusive.
// Any subsequent allocation or exclusive operation panics.
func (a *FastArena[T]) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.store.Load()
	if st == nil {
		return
	}
	n := int(a.cursor.Load())
	dropped := discard(st.data, 0, n, a.drop)
	a.store.Store(nil)
	a.cursor.Store(0)
	a.published.Store(0)
	a.stats.dropped.Add(uint64(dropped))
	a.log.Debug("arena released", "dropped", dropped)
}
