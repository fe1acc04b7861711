package floatpool

import "github.com/sinhashubham95/go-utils/structures/stack"

// idleQueue is a LIFO buffer of idle, validated connections ready for
// reuse. Pushes and pops are O(1) and never block; all synchronization is
// provided by the caller (poolInner.mu) rather than internally, so the
// queue itself never holds a lock across an await point.
//
// Preferring the most recently returned connection (LIFO) keeps a warm
// subset of the pool busy under light load instead of round-robining
// across every connection ever created.
type idleQueue[C Connection] struct {
	s *stack.Stack[idleEntry[C]]
}

func newIdleQueue[C Connection]() *idleQueue[C] {
	return &idleQueue[C]{s: stack.New[idleEntry[C]]()}
}

func (q *idleQueue[C]) push(e idleEntry[C]) {
	q.s.Push(e)
}

func (q *idleQueue[C]) pop() (idleEntry[C], bool) {
	return q.s.Pop()
}

func (q *idleQueue[C]) len() int {
	return q.s.Length()
}

// drain visits every entry present at the moment of the call, in LIFO
// order, removing each from the queue before fn runs. fn may push entries
// it wants kept back onto the queue itself; because the visit count is
// snapshotted up front, anything fn re-pushes is left for the next drain
// rather than being revisited in this one.
func (q *idleQueue[C]) drain(fn func(idleEntry[C])) {
	n := q.s.Length()
	entries := make([]idleEntry[C], 0, n)
	for i := 0; i < n; i++ {
		e, ok := q.s.Pop()
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	for _, e := range entries {
		fn(e)
	}
}
