package typedarena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArenaMetrics(t *testing.T) {
	a := NewArena[int](4)

	m := a.Metrics()
	assert.Equal(t, Metrics{Capacity: 4}, m)

	a.Alloc(1)
	a.Alloc(2)
	m = a.Metrics()
	assert.Equal(t, 2, m.Len)
	assert.Equal(t, 2, m.Reserved)
	assert.InDelta(t, 0.5, m.Utilization, 1e-9)
	assert.Equal(t, uint64(2), m.Allocs)

	a.AllocSlice([]int{3, 4, 5})
	m = a.Metrics()
	assert.Equal(t, uint64(1), m.Grows)
	assert.Greater(t, m.Capacity, 4)

	a.Rollback(CheckpointFromLen[int](1))
	m = a.Metrics()
	assert.Equal(t, 1, m.Len)
	assert.Equal(t, uint64(1), m.Rollbacks)
	assert.Equal(t, uint64(4), m.Dropped)
	assert.Equal(t, uint64(5), m.Allocs, "Allocs is cumulative")
}

func TestFastArenaMetrics(t *testing.T) {
	a := NewFastArena[int](8)
	assert.Equal(t, Metrics{Capacity: 8}, a.Metrics())

	a.Alloc(1)
	a.AllocSlice([]int{2, 3, 4})
	m := a.Metrics()
	assert.Equal(t, 4, m.Len)
	assert.Equal(t, 4, m.Reserved)
	assert.InDelta(t, 0.5, m.Utilization, 1e-9)
	assert.Equal(t, uint64(4), m.Allocs)

	a.Grow()
	a.Reset()
	m = a.Metrics()
	assert.Equal(t, 16, m.Capacity)
	assert.Equal(t, 0, m.Len)
	assert.Zero(t, m.Utilization)
	assert.Equal(t, uint64(1), m.Grows)
	assert.Equal(t, uint64(1), m.Rollbacks)
	assert.Equal(t, uint64(4), m.Dropped)
}

func TestMetricsAfterRelease(t *testing.T) {
	a := NewFastArena[int](8)
	a.Alloc(1)
	a.Release()

	m := a.Metrics()
	assert.Zero(t, m.Capacity)
	assert.Zero(t, m.Utilization)
	assert.Equal(t, uint64(1), m.Dropped)
}
