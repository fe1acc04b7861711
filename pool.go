package floatpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// poolInner is the shared state behind a Pool: options, semaphore, idle
// queue, waiter queue, size counter, and closed flag. It outlives the
// Pool facade itself, since Checkouts and the maintenance task hold a
// reference to it independent of whoever is holding the Pool value.
type poolInner[C Connection] struct {
	// mu guards idle, waiters, and closed. Never held across an await
	// (Connect, Ping, Close, CloseHard, or any hook).
	mu      sync.Mutex
	idle    *idleQueue[C]
	waiters []*waiter[C]
	closed  atomic.Bool

	// sem is the size/permit accounting primitive: one permit per live
	// connection, claimed at construction and released only at actual
	// destruction (see floating). It is only ever touched via TryAcquire
	// and Release, both non-blocking, both called with mu held — the FIFO
	// ordering of callers waiting for a slot is the job of waiters, not of
	// blocking on this semaphore.
	sem *semaphore.Weighted

	size    atomic.Int64
	numIdle atomic.Int64

	opts *Options[C]

	closeCh            chan struct{}
	closeOnce          sync.Once
	maintenanceNotify  chan struct{}
	maintenanceDone    chan struct{}
	maintenanceWorkers sync.WaitGroup
}

func newPoolInner[C Connection](opts *Options[C]) *poolInner[C] {
	return &poolInner[C]{
		idle:              newIdleQueue[C](),
		sem:               semaphore.NewWeighted(int64(opts.MaxConnections)),
		opts:              opts,
		closeCh:           make(chan struct{}),
		maintenanceNotify: make(chan struct{}, 1),
		maintenanceDone:   make(chan struct{}),
	}
}

func (p *poolInner[C]) wakeMaintenance() {
	select {
	case p.maintenanceNotify <- struct{}{}:
	default:
	}
}

// Pool is the public facade: configuration, Acquire, Close, and the size
// observability methods.
type Pool[C Connection] struct {
	inner *poolInner[C]
	opts  *Options[C]
}

// New constructs a pool and eagerly creates connections: if MinConnections
// is set it fills the floor before returning. Otherwise there is no floor
// to maintain, so New only probes the configuration by constructing and
// immediately hard-closing one connection — surfacing a misconfigured
// Options or unreachable backend right away, matching connect_with's
// "return the first construction error" contract, without leaving a
// connection parked idle for a pool whose floor is 0.
func New[C Connection](ctx context.Context, opts *Options[C]) (*Pool[C], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &Pool[C]{inner: newPoolInner(opts), opts: opts}
	p.startMaintenance()

	if opts.MinConnections > 0 {
		if err := p.warmup(ctx, opts.MinConnections); err != nil {
			p.inner.closeOnce.Do(func() { close(p.inner.closeCh) })
			return nil, err
		}
		return p, nil
	}

	l, err := p.inner.construct(ctx)
	if err != nil {
		p.inner.closeOnce.Do(func() { close(p.inner.closeCh) })
		return nil, err
	}
	_ = l.raw.CloseHard(ctx)
	return p, nil
}

// NewLazy constructs a pool without creating any connection eagerly; the
// maintenance task fills MinConnections on its own schedule, matching
// connect_lazy_with semantics.
func NewLazy[C Connection](opts *Options[C]) (*Pool[C], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &Pool[C]{inner: newPoolInner(opts), opts: opts}
	p.startMaintenance()
	// Nudge the first maintenance tick immediately rather than waiting out
	// a full interval, so a lazily constructed pool still starts filling
	// MinConnections right away.
	p.inner.wakeMaintenance()
	return p, nil
}

// warmup builds count idle connections concurrently via errgroup.
func (p *Pool[C]) warmup(ctx context.Context, count int32) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := int32(0); i < count; i++ {
		g.Go(func() error {
			_, err := p.inner.createIdleConnection(gctx, p.opts)
			return err
		})
	}
	return g.Wait()
}

func (p *poolInner[C]) construct(ctx context.Context) (live[C], error) {
	raw, err := p.opts.Connect.Connect(ctx)
	if err != nil {
		var zero live[C]
		return zero, wrapError(KindIO, "connect failed", err)
	}
	return live[C]{id: uuid.New(), raw: raw, createdAt: time.Now()}, nil
}

// createIdleConnection is a best-effort construct used by warmup and
// maintenance top-up: claim a slot, build the connection, and push it
// onto the idle queue (or, if an Acquire is already waiting, hand it
// straight to the oldest one via returnLive). If no slot is free right
// now, built is false and err is nil — another tick or a release will
// make progress instead of this one spinning.
func (p *poolInner[C]) createIdleConnection(ctx context.Context, opts *Options[C]) (built bool, err error) {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return false, ErrPoolClosed
	}
	f, ok := p.tryFloat()
	p.mu.Unlock()
	if !ok {
		return false, nil
	}

	l, cerr := p.construct(ctx)
	if cerr != nil {
		f.release()
		return false, cerr
	}
	l.guard = f
	p.returnLive(ctx, l)
	return true, nil
}

// Acquire is the system's most scrutinised path: prefer an idle
// connection over constructing a new one, falling back to a FIFO wait
// queue when the pool is already at MaxConnections and idle is empty.
// Every attempt — a failed validation, a failed construct, or a trip
// through the wait queue — is bounded by AcquireTimeout and a capped
// retry budget, so a persistently failing BeforeAcquire hook or a flaky
// backend can never spin Acquire forever.
func (p *Pool[C]) Acquire(ctx context.Context) (*Checkout[C], error) {
	if p.inner.closed.Load() {
		return nil, ErrPoolClosed
	}

	tryOnce := *p.opts.AcquireTimeout == 0
	var deadline time.Time
	if !tryOnce {
		deadline = time.Now().Add(*p.opts.AcquireTimeout)
	}

	var lastConnectErr error
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.inner.closeCh:
			return nil, ErrPoolClosed
		default:
		}
		if !tryOnce && time.Now().After(deadline) {
			return nil, wrapError(KindPoolTimedOut, "acquire timed out", lastConnectErr)
		}

		res, err := p.inner.next(ctx, deadline, tryOnce)
		if err != nil {
			if errors.Is(err, ErrPoolTimedOut) {
				return nil, wrapError(KindPoolTimedOut, "acquire timed out", lastConnectErr)
			}
			return nil, err
		}

		var l live[C]
		var meta Metadata
		if res.hasEntry {
			l = res.entry.live
			meta = res.entry.metadata()
		} else {
			cl, cerr := p.inner.construct(ctx)
			if cerr != nil {
				res.permit.release()
				lastConnectErr = cerr
				attempt++
				if attempt >= p.opts.ConnectRetries {
					return nil, wrapError(KindPoolTimedOut, "exhausted connect retries", lastConnectErr)
				}
				remaining := time.Until(deadline)
				if !tryOnce && remaining <= 0 {
					return nil, wrapError(KindPoolTimedOut, "acquire timed out", lastConnectErr)
				}
				delay := connectBackoff(attempt, remaining/4)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-p.inner.closeCh:
					return nil, ErrPoolClosed
				}
				continue
			}
			cl.guard = res.permit
			l = cl
			meta = l.metadata()
		}

		l, ok, verr := p.validateLive(ctx, l, meta)
		if verr != nil {
			return nil, verr
		}
		if !ok {
			attempt++
			if attempt >= p.opts.ConnectRetries {
				return nil, wrapError(KindPoolTimedOut, "exhausted validation retries", lastConnectErr)
			}
			if !tryOnce && time.Now().After(deadline) {
				return nil, wrapError(KindPoolTimedOut, "acquire timed out", lastConnectErr)
			}
			continue
		}
		return p.reattach(l), nil
	}
}

// next produces exactly one acquire candidate: an idle entry ready to
// validate, or a freshly claimed permit to construct against. idle reuse
// is only allowed to bypass the waiter queue when that queue is empty —
// otherwise a new arrival could steal a connection out from under
// whoever has been waiting longest. When neither idle nor a free slot is
// available, the caller joins the waiter queue and blocks on its own
// channel until another goroutine hands it a result, the deadline
// passes, ctx is cancelled, or the pool closes.
func (p *poolInner[C]) next(ctx context.Context, deadline time.Time, tryOnce bool) (waiterResult[C], error) {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return waiterResult[C]{}, ErrPoolClosed
	}
	if len(p.waiters) == 0 {
		if e, ok := p.idle.pop(); ok {
			p.numIdle.Add(-1)
			p.mu.Unlock()
			return waiterResult[C]{entry: e, hasEntry: true}, nil
		}
		if f, ok := p.tryFloat(); ok {
			p.mu.Unlock()
			return waiterResult[C]{permit: f}, nil
		}
	}
	if tryOnce {
		p.mu.Unlock()
		return waiterResult[C]{}, ErrPoolTimedOut
	}

	w := &waiter[C]{ch: make(chan waiterResult[C], 1)}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.cancelWaiter(w)
			return waiterResult[C]{}, ErrPoolTimedOut
		}
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-w.ch:
		if res.err != nil {
			return waiterResult[C]{}, res.err
		}
		return res, nil
	case <-ctx.Done():
		p.cancelWaiter(w)
		return waiterResult[C]{}, ctx.Err()
	case <-p.closeCh:
		p.cancelWaiter(w)
		return waiterResult[C]{}, ErrPoolClosed
	case <-timeoutCh:
		p.cancelWaiter(w)
		return waiterResult[C]{}, ErrPoolTimedOut
	}
}

// validateLive runs the optional ping-before-acquire and BeforeAcquire
// hooks over a candidate connection, whether it came from the idle queue
// or was just constructed. ok=false means the caller's acquire loop should
// discard this connection and retry; err != nil means acquire must fail
// outright. Discarding releases the guard synchronously, before control
// returns to the acquire loop, so size never transiently exceeds
// MaxConnections while a replacement is constructed — only the CloseHard
// I/O itself runs in the background.
func (p *Pool[C]) validateLive(ctx context.Context, l live[C], meta Metadata) (live[C], bool, error) {
	if p.opts.TestBeforeAcquire {
		if err := l.raw.Ping(ctx); err != nil {
			p.discardHard(context.Background(), l)
			return live[C]{}, false, nil
		}
	}
	if p.opts.BeforeAcquire != nil {
		if !p.opts.BeforeAcquire(ctx, l.raw, meta) {
			p.discardHard(context.Background(), l)
			return live[C]{}, false, nil
		}
	}
	return l, true, nil
}

func (p *Pool[C]) reattach(l live[C]) *Checkout[C] {
	return &Checkout[C]{live: l, pool: p}
}

func (p *Pool[C]) discardHard(ctx context.Context, l live[C]) {
	l.guard.release()
	go func() { _ = l.raw.CloseHard(ctx) }()
}

func (p *Pool[C]) discardGraceful(ctx context.Context, l live[C]) {
	l.guard.release()
	go func() { _ = l.raw.Close(ctx) }()
}

// returnLive enqueues a connection as idle: after warmup/top-up construct
// it, and after Checkout.Close decides to keep it. If an Acquire is
// already queued waiting for a slot, the connection is handed directly to
// the oldest one instead of ever touching the idle queue.
func (p *poolInner[C]) returnLive(ctx context.Context, l live[C]) {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		_ = l.raw.CloseHard(ctx)
		l.guard.release()
		return
	}
	if w, ok := p.popWaiterLocked(); ok {
		p.mu.Unlock()
		w.ch <- waiterResult[C]{entry: idleEntry[C]{live: l, idleSince: time.Now()}, hasEntry: true}
		return
	}
	p.idle.push(idleEntry[C]{live: l, idleSince: time.Now()})
	p.numIdle.Add(1)
	p.mu.Unlock()
}

// Close sets closed and closes closeCh, which every blocked Acquire
// observes promptly; it wakes any queued waiters with PoolClosed, drains
// and hard-closes the idle queue, and waits for the maintenance task to
// stop. Idempotent.
func (p *Pool[C]) Close(ctx context.Context) {
	p.inner.closeOnce.Do(func() {
		p.inner.closed.Store(true)
		close(p.inner.closeCh)

		p.inner.mu.Lock()
		var toClose []idleEntry[C]
		p.inner.idle.drain(func(e idleEntry[C]) {
			toClose = append(toClose, e)
		})
		p.inner.numIdle.Store(0)
		waiters := p.inner.waiters
		p.inner.waiters = nil
		p.inner.mu.Unlock()

		for _, w := range waiters {
			w.ch <- waiterResult[C]{err: ErrPoolClosed}
		}
		for _, e := range toClose {
			_ = e.live.raw.CloseHard(ctx)
			e.live.guard.release()
		}

		<-p.inner.maintenanceDone
		p.opts.Logger.WithField("size", p.Size()).Info("floatpool: pool closed")
	})
}

// Size reports the number of connections currently owned by the pool in
// any state other than Closed.
func (p *Pool[C]) Size() int64 { return p.inner.size.Load() }

// NumIdle reports the number of validated connections ready for reuse.
func (p *Pool[C]) NumIdle() int64 { return p.inner.numIdle.Load() }

// IsClosed reports whether Close has been called.
func (p *Pool[C]) IsClosed() bool { return p.inner.closed.Load() }
