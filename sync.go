package typedarena

import (
	"iter"
	"sync"
)

// SyncArena is a mutex-protected wrapper around Arena for concurrent access.
// All operations are thread-safe but come with the overhead of mutex locking.
//
// Unlike FastArena it grows on demand, and values are returned by copy
// because the backing slice may move under another goroutine's allocation.
type SyncArena[T any] struct {
	mu sync.Mutex
	a  *Arena[T]
}

// NewSyncArena creates a new thread-safe arena with room for capacity values.
func NewSyncArena[T any](capacity int, opts ...Option) *SyncArena[T] {
	return &SyncArena[T]{a: NewArena[T](capacity, opts...)}
}

// Alloc thread-safely stores v and returns its handle.
func (s *SyncArena[T]) Alloc(v T) Idx[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(v)
}

// AllocSlice thread-safely stores all of vs in consecutive slots.
func (s *SyncArena[T]) AllocSlice(vs []T) (Idx[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocSlice(vs)
}

// AllocExtend thread-safely stores every value yielded by seq. The lock is
// held while seq runs.
func (s *SyncArena[T]) AllocExtend(seq iter.Seq[T]) (Idx[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocExtend(seq)
}

// Get thread-safely returns the value at idx. It panics if idx is out of range.
func (s *SyncArena[T]) Get(idx Idx[T]) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Get(idx)
}

// TryGet thread-safely returns the value at idx, or false if out of range.
func (s *SyncArena[T]) TryGet(idx Idx[T]) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.TryGet(idx)
}

// Set thread-safely replaces the value at idx.
func (s *SyncArena[T]) Set(idx Idx[T], v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Set(idx, v)
}

// Update thread-safely calls fn with a pointer to the value at idx.
// fn must not call back into the arena.
func (s *SyncArena[T]) Update(idx Idx[T], fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.a.GetMut(idx))
}

// Len thread-safely returns the number of allocated values.
func (s *SyncArena[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Len()
}

// Checkpoint thread-safely saves the current allocation count.
func (s *SyncArena[T]) Checkpoint() Checkpoint[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Checkpoint()
}

// Rollback thread-safely discards every value allocated after cp.
func (s *SyncArena[T]) Rollback(cp Checkpoint[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Rollback(cp)
}

// Reset thread-safely discards every value.
func (s *SyncArena[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Snapshot thread-safely returns a copy of the values in allocation order.
func (s *SyncArena[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.ToSlice()
}

// Drain thread-safely moves every value out of the arena.
func (s *SyncArena[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Drain()
}

// Release thread-safely drops every value and makes the arena unusable.
func (s *SyncArena[T]) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Release()
}
