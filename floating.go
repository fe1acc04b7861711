package floatpool

import "sync/atomic"

// floating is the accounting guard behind every connection the pool knows
// about, from the moment a permit is claimed for it until the moment it is
// actually destroyed. There is exactly one floating per live connection,
// and it is held continuously whether that connection is idle, checked
// out, or mid-validation — size and permits-in-use never drift apart
// because neither is ever touched without the other. release is
// idempotent, so it is safe to call from more than one discard path
// without double-crediting the semaphore.
type floating[C Connection] struct {
	pool     *poolInner[C]
	released atomic.Bool
}

// release is called exactly once per connection's real lifetime, at the
// point it is actually destroyed (discarded, reaped, detached, or drained
// on Close) — never merely because it moved between idle and checked-out.
func (f *floating[C]) release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	f.pool.releaseFloating()
}

// tryFloat claims one size/permit slot for a connection about to be
// constructed. Caller must hold pool.mu.
func (p *poolInner[C]) tryFloat() (*floating[C], bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	p.size.Add(1)
	return &floating[C]{pool: p}, true
}

// releaseFloating runs when a connection is actually destroyed. If a
// waiter is already queued for a slot, the slot is handed directly to it —
// size and the semaphore count never change, since the slot is simply
// changing which connection it belongs to — rather than released back to
// the semaphore only for the waiter to race everyone else to reclaim it.
func (p *poolInner[C]) releaseFloating() {
	p.mu.Lock()
	if w, ok := p.popWaiterLocked(); ok {
		p.mu.Unlock()
		w.ch <- waiterResult[C]{permit: &floating[C]{pool: p}}
		return
	}
	p.size.Add(-1)
	p.sem.Release(1)
	p.mu.Unlock()
	p.wakeMaintenance()
}
