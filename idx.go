package typedarena

import "strconv"

// Idx is a stable handle to a value allocated in an Arena or FastArena.
//
// It is a plain offset; T only exists at compile time so handles of different
// element types cannot be mixed up. Idx does not record which arena it came
// from: using it against another arena of the same element type panics if the
// offset is out of that arena's range and otherwise reads unrelated data.
//
// A handle stays valid until the arena is rolled back or reset past it.
type Idx[T any] int

// IdxFromRaw creates a handle from a raw offset.
// The caller must ensure the offset is valid for the target arena.
func IdxFromRaw[T any](i int) Idx[T] {
	return Idx[T](i)
}

// Raw returns the offset of the handle.
func (i Idx[T]) Raw() int {
	return int(i)
}

func (i Idx[T]) String() string {
	return "Idx(" + strconv.Itoa(int(i)) + ")"
}

// Checkpoint is a saved allocation count used to bound a later Rollback.
// Checkpoints are ordered by capture time.
type Checkpoint[T any] int

// CheckpointFromLen creates a checkpoint for an arena holding n values.
func CheckpointFromLen[T any](n int) Checkpoint[T] {
	return Checkpoint[T](n)
}

// Len returns the allocation count saved in the checkpoint.
func (c Checkpoint[T]) Len() int {
	return int(c)
}

// IsEmpty reports whether the checkpoint was taken on an empty arena.
func (c Checkpoint[T]) IsEmpty() bool {
	return c == 0
}

func (c Checkpoint[T]) String() string {
	return "Checkpoint(" + strconv.Itoa(int(c)) + ")"
}
