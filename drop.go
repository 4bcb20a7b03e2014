package typedarena

// Dropper is implemented by values that hold resources beyond memory.
// Arenas call Drop on every value they discard through Rollback, Reset or
// Release. Values moved out with Drain are not dropped.
type Dropper interface {
	Drop()
}

// dropFn runs Drop on a slot if the element type implements Dropper.
// It is nil for element types that do not.
type dropFn[T any] func(*T)

func resolveDrop[T any]() dropFn[T] {
	var zero T
	if _, ok := any(&zero).(Dropper); ok {
		return func(p *T) {
			any(p).(Dropper).Drop()
		}
	}
	// Pointer types with Drop in their method set, and interface types whose
	// dynamic values may or may not implement it.
	if _, ok := any(zero).(Dropper); ok || any(zero) == nil {
		return func(p *T) {
			if d, ok := any(*p).(Dropper); ok {
				d.Drop()
			}
		}
	}
	return nil
}

// discard drops data[lo:hi] in reverse order and zeroes the slots.
// It returns the number of values discarded.
func discard[T any](data []T, lo, hi int, drop dropFn[T]) int {
	if drop != nil {
		for i := hi - 1; i >= lo; i-- {
			drop(&data[i])
		}
	}
	clear(data[lo:hi])
	return hi - lo
}
