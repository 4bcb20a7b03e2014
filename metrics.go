package typedarena

import "sync/atomic"

// Metrics contains statistical information about an arena.
type Metrics struct {
	Len         int     // Values visible to readers (published prefix for FastArena)
	Reserved    int     // Slots handed out, published or not
	Capacity    int     // Slots available without growing
	Utilization float64 // Reserved / Capacity (0.0-1.0)
	Allocs      uint64  // Cumulative values allocated
	Rollbacks   uint64  // Rollbacks and resets that discarded at least one value
	Grows       uint64  // Storage reallocations
	Dropped     uint64  // Cumulative values discarded
}

// MetricsSource is implemented by every arena type in this package.
type MetricsSource interface {
	Metrics() Metrics
}

var (
	_ MetricsSource = (*Arena[int])(nil)
	_ MetricsSource = (*FastArena[int])(nil)
	_ MetricsSource = (*SyncArena[int])(nil)
)

type counters struct {
	allocs    uint64
	rollbacks uint64
	grows     uint64
	dropped   uint64
}

// atomicCounters is updated by concurrent allocators.
type atomicCounters struct {
	allocs    atomic.Uint64
	rollbacks atomic.Uint64
	grows     atomic.Uint64
	dropped   atomic.Uint64
}

func utilization(reserved, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(reserved) / float64(capacity)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena[T]) Metrics() Metrics {
	return Metrics{
		Len:         len(a.items),
		Reserved:    len(a.items),
		Capacity:    cap(a.items),
		Utilization: utilization(len(a.items), cap(a.items)),
		Allocs:      a.stats.allocs,
		Rollbacks:   a.stats.rollbacks,
		Grows:       a.stats.grows,
		Dropped:     a.stats.dropped,
	}
}

// Metrics returns a snapshot of arena statistics. It is safe to call
// concurrently with allocation.
func (a *FastArena[T]) Metrics() Metrics {
	reserved := a.Reserved()
	capacity := a.Cap()
	return Metrics{
		Len:         a.Len(),
		Reserved:    reserved,
		Capacity:    capacity,
		Utilization: utilization(reserved, capacity),
		Allocs:      a.stats.allocs.Load(),
		Rollbacks:   a.stats.rollbacks.Load(),
		Grows:       a.stats.grows.Load(),
		Dropped:     a.stats.dropped.Load(),
	}
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SyncArena[T]) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}
