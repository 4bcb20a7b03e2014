package typedarena

import (
	"errors"
	"fmt"
)

var (
	// ErrArenaFull is reported when a FastArena has no free slots left.
	// Grow the arena under exclusive access before allocating more.
	ErrArenaFull = errors.New("typedarena: arena full")
	// ErrReleased is reported when an arena is used after Release.
	ErrReleased = errors.New("typedarena: use after Release()")
)

func panicOutOfRange(i, n int) {
	panic(fmt.Sprintf("typedarena: index out of range [%d] with length %d", i, n))
}

func panicReleased() {
	panic(ErrReleased)
}
