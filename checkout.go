package floatpool

import (
	"context"
	"sync/atomic"
)

// Checkout is a connection on loan from a Pool. Go has no async
// destructor to run when a value goes out of scope, so returning a
// connection is always an explicit call — Close to hand it back (or
// discard it, depending on validation), Detach or Leak to take permanent
// ownership of the underlying connection instead. Exactly one of
// Close/Detach/Leak should be called per Checkout; calling Close or
// Detach a second time is a no-op error, and calling either after Leak
// has no effect on the leaked connection.
type Checkout[C Connection] struct {
	live live[C]
	pool *Pool[C]

	done atomic.Bool
}

// Conn returns the underlying connection for use by the caller.
func (c *Checkout[C]) Conn() C {
	return c.live.raw
}

// Close returns the connection to the pool. The hand-back itself runs as
// a detached goroutine so Close can return immediately: the caller's ctx
// governs nothing about the connection's life from here on, since the
// decision to keep or discard it (AfterRelease, pool shutdown) must run
// to completion regardless of what the caller does next. The guard —
// and with it, the slot it represents — stays held for the full duration
// of that decision, whether it ends in returnLive or a discard.
func (c *Checkout[C]) Close(ctx context.Context) error {
	if !c.done.CompareAndSwap(false, true) {
		return wrapError(KindConfiguration, "checkout already closed or detached", nil)
	}

	l := c.live

	go func() {
		bg := context.Background()
		if c.pool.inner.closed.Load() {
			c.pool.discardGraceful(bg, l)
			return
		}
		if hook := c.pool.opts.AfterRelease; hook != nil {
			keep, err := hook(bg, l.raw, l.metadata())
			if err != nil {
				c.pool.discardHard(bg, l)
				return
			}
			if !keep {
				c.pool.discardGraceful(bg, l)
				return
			}
		}
		c.pool.inner.returnLive(bg, l)
	}()

	return nil
}

// Detach removes the connection from the pool's accounting — releasing
// its guard, which frees both its permit and its size slot — without
// closing it, handing the caller permanent, unmanaged ownership. Unlike
// Close, this runs synchronously: there is no validation step to race
// against.
func (c *Checkout[C]) Detach(ctx context.Context) (C, error) {
	if !c.done.CompareAndSwap(false, true) {
		var zero C
		return zero, wrapError(KindConfiguration, "checkout already closed or detached", nil)
	}
	c.live.guard.release()
	return c.live.raw, nil
}

// Leak hands the caller the underlying connection without ever releasing
// its guard, so the slot it occupied is never returned to the pool. This
// is a deliberate escape hatch for callers who need a connection to
// outlive the pool itself (or who are about to os.Exit); every other
// Checkout left unclosed should still go through Close or Detach.
func (c *Checkout[C]) Leak() C {
	c.done.Store(true)
	return c.live.raw
}
