package floatpool

import (
	"context"
	"time"
)

// startMaintenance launches the background task that reaps expired idle
// connections and tops the pool back up to MinConnections. One goroutine
// per pool, stopped by closeCh and observed complete via maintenanceDone.
func (p *Pool[C]) startMaintenance() {
	go p.inner.maintenanceLoop(p.opts)
}

func (p *poolInner[C]) maintenanceLoop(opts *Options[C]) {
	defer close(p.maintenanceDone)

	ticker := time.NewTicker(opts.maintenanceInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.closeCh:
			p.maintenanceWorkers.Wait()
			return
		case <-ticker.C:
			p.tick(opts)
		case <-p.maintenanceNotify:
			p.tick(opts)
		}
	}
}

func (p *poolInner[C]) tick(opts *Options[C]) {
	p.reapIdle(opts)
	p.topUp(opts)
}

// reapIdle evicts idle connections that have exceeded IdleTimeout or
// MaxLifetime, hard-closing each and releasing its size slot. Survivors
// are pushed back onto the idle queue.
func (p *poolInner[C]) reapIdle(opts *Options[C]) {
	var expired []idleEntry[C]

	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return
	}
	now := time.Now()
	p.idle.drain(func(e idleEntry[C]) {
		if reapable(e, opts, now) {
			expired = append(expired, e)
			p.numIdle.Add(-1)
			return
		}
		p.idle.push(e)
	})
	p.mu.Unlock()

	for _, e := range expired {
		_ = e.live.raw.CloseHard(context.Background())
		e.live.guard.release()
	}
}

func reapable[C Connection](e idleEntry[C], opts *Options[C], now time.Time) bool {
	if opts.IdleTimeout != nil && *opts.IdleTimeout > 0 && now.Sub(e.idleSince) >= *opts.IdleTimeout {
		return true
	}
	if opts.MaxLifetime != nil && *opts.MaxLifetime > 0 && now.Sub(e.live.createdAt) >= *opts.MaxLifetime {
		return true
	}
	return false
}

// topUp constructs connections, one at a time, until size reaches
// MinConnections or a construct attempt fails; a failure is logged and
// left for the next tick rather than retried immediately, since
// maintenance runs on its own schedule independent of any caller's
// acquire deadline.
func (p *poolInner[C]) topUp(opts *Options[C]) {
	if p.closed.Load() {
		return
	}
	p.maintenanceWorkers.Add(1)
	defer p.maintenanceWorkers.Done()

	for int32(p.size.Load()) < opts.MinConnections {
		if p.closed.Load() {
			return
		}
		timeout := defaultAcquireTimeout
		if opts.AcquireTimeout != nil && *opts.AcquireTimeout > 0 {
			timeout = *opts.AcquireTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		built, err := p.createIdleConnection(ctx, opts)
		cancel()
		if err != nil {
			opts.Logger.WithError(err).Warn("floatpool: maintenance top-up construct failed")
			return
		}
		if !built {
			// No permit is free right now; stop for this tick
			// instead of spinning, and let the next tick or a release wake
			// things back up via wakeMaintenance.
			return
		}
	}
}
