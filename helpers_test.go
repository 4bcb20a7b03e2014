package typedarena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// dropLog records the ids of dropped values in drop order.
type dropLog struct {
	mu    sync.Mutex
	order []int
}

func (l *dropLog) record(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, id)
}

func (l *dropLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

func (l *dropLog) ids() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.order...)
}

// tracked reports to its log when dropped.
type tracked struct {
	id  int
	log *dropLog
}

func (v tracked) Drop() {
	if v.log != nil {
		v.log.record(v.id)
	}
}

// ptrTracked implements Dropper on the pointer receiver.
type ptrTracked struct {
	id  int
	log *dropLog
}

func (v *ptrTracked) Drop() {
	v.log.record(v.id)
}

func requirePanicsWithError(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.Truef(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, target)
	}()
	fn()
}
