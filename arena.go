package typedarena

import (
	"iter"
	"log/slog"
	"slices"
)

// Arena is a single-owner typed bump allocator backed by a growable slice.
// Not goroutine-safe. Use SyncArena for mutex-guarded access or FastArena
// for lock-free concurrent allocation.
//
// Growth may move values in memory, but handles are logical offsets and stay
// valid. Pointers from GetMut are only valid until the next allocation.
type Arena[T any] struct {
	items    []T
	drop     dropFn[T]
	log      *slog.Logger
	released bool
	stats    counters
}

// NewArena creates an Arena with room for capacity values.
// If capacity <= 0, no storage is allocated up front.
func NewArena[T any](capacity int, opts ...Option) *Arena[T] {
	cfg := newConfig(opts)
	a := &Arena[T]{
		drop: resolveDrop[T](),
		log:  cfg.logger,
	}
	if capacity > 0 {
		a.items = make([]T, 0, capacity)
	}
	return a
}

// ArenaFrom collects seq into a new Arena.
func ArenaFrom[T any](seq iter.Seq[T], opts ...Option) *Arena[T] {
	a := NewArena[T](0, opts...)
	a.AllocExtend(seq)
	return a
}

// Alloc appends v and returns its handle. O(1) amortized.
func (a *Arena[T]) Alloc(v T) Idx[T] {
	a.panicIfReleased()
	i := len(a.items)
	a.push(v)
	a.stats.allocs++
	return Idx[T](i)
}

func (a *Arena[T]) push(v T) {
	if len(a.items) == cap(a.items) {
		a.stats.grows++
	}
	a.items = append(a.items, v)
}

// AllocSlice appends all of vs with a single capacity check and returns the
// handle of the first one. It returns false if vs is empty.
func (a *Arena[T]) AllocSlice(vs []T) (Idx[T], bool) {
	a.panicIfReleased()
	if len(vs) == 0 {
		return 0, false
	}
	start := len(a.items)
	if cap(a.items)-start < len(vs) {
		a.items = slices.Grow(a.items, len(vs))
		a.stats.grows++
	}
	a.items = append(a.items, vs...)
	a.stats.allocs += uint64(len(vs))
	return Idx[T](start), true
}

// AllocExtend appends every value yielded by seq and returns the handle of
// the first one. It returns false if seq yields nothing.
func (a *Arena[T]) AllocExtend(seq iter.Seq[T]) (Idx[T], bool) {
	a.panicIfReleased()
	start := len(a.items)
	for v := range seq {
		a.push(v)
		a.stats.allocs++
	}
	return Idx[T](start), len(a.items) > start
}

// Get returns the value at idx. It panics if idx is out of range.
func (a *Arena[T]) Get(idx Idx[T]) T {
	return *a.GetMut(idx)
}

// GetMut returns a pointer to the value at idx. It panics if idx is out of
// range. The pointer must not be used after the next allocation, Rollback or
// Reset.
func (a *Arena[T]) GetMut(idx Idx[T]) *T {
	i := int(idx)
	if uint(i) >= uint(len(a.items)) {
		panicOutOfRange(i, len(a.items))
	}
	return &a.items[i]
}

// Set replaces the value at idx. It panics if idx is out of range.
// The previous value is overwritten without being dropped.
func (a *Arena[T]) Set(idx Idx[T], v T) {
	*a.GetMut(idx) = v
}

// TryGet returns the value at idx, or false if idx is out of range.
func (a *Arena[T]) TryGet(idx Idx[T]) (T, bool) {
	if !a.IsValid(idx) {
		var zero T
		return zero, false
	}
	return a.items[idx], true
}

// TryGetMut returns a pointer to the value at idx, or false if idx is out of
// range.
func (a *Arena[T]) TryGetMut(idx Idx[T]) (*T, bool) {
	if !a.IsValid(idx) {
		return nil, false
	}
	return &a.items[idx], true
}

// IsValid reports whether idx refers to a live value in this arena.
func (a *Arena[T]) IsValid(idx Idx[T]) bool {
	return uint(idx) < uint(len(a.items))
}

// Len returns the number of allocated values.
func (a *Arena[T]) Len() int { return len(a.items) }

// IsEmpty reports whether the arena holds no values.
func (a *Arena[T]) IsEmpty() bool { return len(a.items) == 0 }

// Cap returns the number of values the arena can hold before reallocating.
func (a *Arena[T]) Cap() int { return cap(a.items) }

// Reserve makes room for at least additional more values.
func (a *Arena[T]) Reserve(additional int) {
	a.panicIfReleased()
	if additional <= 0 || cap(a.items)-len(a.items) >= additional {
		return
	}
	a.items = slices.Grow(a.items, additional)
	a.stats.grows++
}

// ShrinkToFit reallocates the backing storage to exactly Len values.
func (a *Arena[T]) ShrinkToFit() {
	if cap(a.items) == len(a.items) {
		return
	}
	items := make([]T, len(a.items))
	copy(items, a.items)
	a.items = items
}

// Checkpoint saves the current allocation count.
func (a *Arena[T]) Checkpoint() Checkpoint[T] {
	return Checkpoint[T](len(a.items))
}

// Rollback discards every value allocated after cp, dropping them in reverse
// allocation order. Rolling back to a checkpoint at or beyond the current
// length is a no-op. O(k) for k discarded values.
func (a *Arena[T]) Rollback(cp Checkpoint[T]) {
	a.panicIfReleased()
	n := int(cp)
	if n < 0 {
		n = 0
	}
	if n >= len(a.items) {
		return
	}
	dropped := discard(a.items, n, len(a.items), a.drop)
	a.items = a.items[:n]
	a.stats.rollbacks++
	a.stats.dropped += uint64(dropped)
	a.log.Debug("arena rolled back", "checkpoint", n, "dropped", dropped)
}

// Reset discards every value. Capacity is retained for reuse.
func (a *Arena[T]) Reset() {
	a.Rollback(0)
}

// AsSlice returns the allocated values as a contiguous slice in allocation
// order. The slice aliases the arena and must not be used after the next
// allocation or Rollback.
func (a *Arena[T]) AsSlice() []T {
	return a.items[:len(a.items):len(a.items)]
}

// All yields values in allocation order.
func (a *Arena[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range a.items {
			if !yield(v) {
				return
			}
		}
	}
}

// Mut yields a pointer to each value in allocation order.
func (a *Arena[T]) Mut() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for i := range a.items {
			if !yield(&a.items[i]) {
				return
			}
		}
	}
}

// Indexed yields (handle, value) pairs in allocation order.
func (a *Arena[T]) Indexed() iter.Seq2[Idx[T], T] {
	return func(yield func(Idx[T], T) bool) {
		for i, v := range a.items {
			if !yield(Idx[T](i), v) {
				return
			}
		}
	}
}

// IndexedMut yields (handle, pointer) pairs in allocation order.
func (a *Arena[T]) IndexedMut() iter.Seq2[Idx[T], *T] {
	return func(yield func(Idx[T], *T) bool) {
		for i := range a.items {
			if !yield(Idx[T](i), &a.items[i]) {
				return
			}
		}
	}
}

// Drain moves every value out of the arena in allocation order. The arena is
// left empty with its capacity intact. Drained values are not dropped.
func (a *Arena[T]) Drain() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	clear(a.items)
	a.items = a.items[:0]
	return out
}

// ToSlice returns a copy of the values in allocation order.
func (a *Arena[T]) ToSlice() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	return out
}

// Release drops every value and makes the arena unusable.
// Any subsequent allocation panics.
func (a *Arena[T]) Release() {
	if a.released {
		return
	}
	dropped := discard(a.items, 0, len(a.items), a.drop)
	a.stats.dropped += uint64(dropped)
	a.items = nil
	a.released = true
	a.log.Debug("arena released", "dropped", dropped)
}

func (a *Arena[T]) panicIfReleased() {
	if a.released {
		panicReleased()
	}
}
