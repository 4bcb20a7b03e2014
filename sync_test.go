package typedarena

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewSyncArena(t *testing.T) {
	s := NewSyncArena[int](8)
	require.NotNil(t, s)
	require.NotNil(t, s.a)
	assert.Equal(t, 8, s.Metrics().Capacity)
}

func TestSyncArenaOperations(t *testing.T) {
	s := NewSyncArena[string](0)

	x := s.Alloc("a")
	first, ok := s.AllocSlice([]string{"b", "c"})
	require.True(t, ok)
	assert.Equal(t, IdxFromRaw[string](1), first)

	_, ok = s.AllocExtend(slices.Values([]string{"d"}))
	require.True(t, ok)
	assert.Equal(t, 4, s.Len())

	assert.Equal(t, "a", s.Get(x))
	s.Set(x, "A")
	s.Update(first, func(v *string) { *v += "!" })
	assert.Equal(t, []string{"A", "b!", "c", "d"}, s.Snapshot())

	_, ok = s.TryGet(IdxFromRaw[string](10))
	assert.False(t, ok)

	cp := s.Checkpoint()
	s.Alloc("e")
	s.Rollback(cp)
	assert.Equal(t, 4, s.Len())

	assert.Equal(t, []string{"A", "b!", "c", "d"}, s.Drain())
	assert.Equal(t, 0, s.Len())

	s.Alloc("f")
	s.Reset()
	assert.Equal(t, 0, s.Len())

	s.Release()
	requirePanicsWithError(t, ErrReleased, func() { s.Alloc("g") })
}

func TestSyncArenaConcurrentGrowth(t *testing.T) {
	s := NewSyncArena[int](1)

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			for i := range 500 {
				h := s.Alloc(w*500 + i)
				if got := s.Get(h); got != w*500+i {
					t.Errorf("Get(%v) = %d, want %d", h, got, w*500+i)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 4000, s.Len())
	m := s.Metrics()
	assert.Greater(t, m.Grows, uint64(1), "SyncArena grows under shared access")
	assert.Equal(t, uint64(4000), m.Allocs)

	values := s.Snapshot()
	slices.Sort(values)
	for i, v := range values {
		require.Equal(t, i, v)
	}
}
