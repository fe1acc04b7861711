package floatpool

import "context"

// waiter is a single blocked Acquire call, parked in poolInner.waiters
// while size == MaxConnections and idle is empty. The idle-reuse fast
// path in Acquire (see pool.go) is only allowed to bypass this queue when
// it is empty — otherwise a newly arriving caller could steal a
// just-returned connection out from under whoever has been waiting
// longest, breaking FIFO ordering.
type waiter[C Connection] struct {
	ch chan waiterResult[C]
}

// waiterResult is handed to a waiter's channel by whichever goroutine
// frees up a slot on its behalf: either a ready idle entry (returnLive),
// or a freshly claimed permit the waiter should use to construct its own
// connection (releaseFloating), or an error if the pool closed first.
type waiterResult[C Connection] struct {
	entry    idleEntry[C]
	hasEntry bool
	permit   *floating[C]
	err      error
}

// popWaiterLocked removes and returns the oldest queued waiter. Caller
// must hold pool.mu.
func (p *poolInner[C]) popWaiterLocked() (*waiter[C], bool) {
	if len(p.waiters) == 0 {
		return nil, false
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	return w, true
}

// removeWaiterLocked removes target from the queue if still present,
// reporting whether it was found. Caller must hold pool.mu.
func (p *poolInner[C]) removeWaiterLocked(target *waiter[C]) bool {
	for i, w := range p.waiters {
		if w == target {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// cancelWaiter removes w from the queue on a caller's timeout, cancel, or
// pool-close path. If w had already been popped by a concurrent hand-off
// (returnLive or releaseFloating) a moment before we acquired the lock,
// that hand-off is guaranteed to land on w.ch shortly; receive it here and
// feed it back into the pool rather than dropping an idle connection or a
// permit on the floor.
func (p *poolInner[C]) cancelWaiter(w *waiter[C]) {
	p.mu.Lock()
	stillQueued := p.removeWaiterLocked(w)
	p.mu.Unlock()
	if stillQueued {
		return
	}
	res := <-w.ch
	switch {
	case res.hasEntry:
		p.returnLive(context.Background(), res.entry.live)
	case res.permit != nil:
		res.permit.release()
	}
}
