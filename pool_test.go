package floatpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sinhashubham95/floatpool"
)

// fakeConn is the smallest Connection a test needs: it tracks its own id
// (stamped at construction) and whether it has been closed, and lets a
// test script its Ping response.
type fakeConn struct {
	id       int64
	closed   atomic.Bool
	pingFunc func() error
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) CloseHard(ctx context.Context) error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	if c.pingFunc == nil {
		return nil
	}
	return c.pingFunc()
}

// fakeConnector constructs fakeConns, numbering each one, with optional
// per-attempt failure and delay injection for timeout/retry scenarios.
type fakeConnector struct {
	counter   atomic.Int64
	failUntil int64 // Connect fails for the first failUntil attempts
	delay     time.Duration
	pingFunc  func() error
}

func (f *fakeConnector) Connect(ctx context.Context) (*fakeConn, error) {
	n := f.counter.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= f.failUntil {
		return nil, errors.New("fakeConnector: simulated dial failure")
	}
	return &fakeConn{id: n, pingFunc: f.pingFunc}, nil
}

func newTestOptions(connector *fakeConnector, max, min int32) *floatpool.Options[*fakeConn] {
	return &floatpool.Options[*fakeConn]{
		Connect:        connector,
		MaxConnections: max,
		MinConnections: min,
	}
}

// Scenario 1: basic reuse. max=1, min=0: two serial acquire/close cycles
// reuse the same underlying connection.
func TestBasicReuse(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	pool, err := floatpool.NewLazy(newTestOptions(connector, 1, 0))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	ctx := context.Background()
	co1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	id1 := co1.Conn().id
	assert.EqualValues(t, 1, pool.Size())
	require.NoError(t, co1.Close(ctx))

	assert.Eventually(t, func() bool {
		return pool.NumIdle() == 1
	}, time.Second, 5*time.Millisecond)

	co2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, co2.Conn().id, "expected the same underlying connection to be reused")
	assert.EqualValues(t, 1, pool.Size())
	assert.EqualValues(t, 0, pool.NumIdle())
}

// Scenario 2: saturation and FIFO ordering. max=2; a third and fourth
// waiter queue up behind two held checkouts, and complete in request
// order as checkouts are released.
func TestSaturationFIFO(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	pool, err := floatpool.NewLazy(newTestOptions(connector, 2, 0))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	ctx := context.Background()
	co1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	co2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pool.Size())

	var mu sync.Mutex
	var order []string

	wait := func(label string) <-chan struct{} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			co, err := pool.Acquire(ctx)
			if err != nil {
				return
			}
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			_ = co.Close(ctx)
		}()
		return done
	}

	third := wait("third")
	time.Sleep(20 * time.Millisecond) // ensure "third" enqueues before "fourth"
	fourth := wait("fourth")
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, co1.Close(ctx))
	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("third acquire never completed after first release")
	}

	require.NoError(t, co2.Close(ctx))
	select {
	case <-fourth:
	case <-time.After(time.Second):
		t.Fatal("fourth acquire never completed after second release")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"third", "fourth"}, order, "waiters must complete in FIFO order")
}

// Scenario 3: timeout. max=1, acquire_timeout=100ms: a second acquire
// against a fully saturated pool fails with PoolTimedOut at ~100ms.
func TestAcquireTimeout(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	opts := newTestOptions(connector, 1, 0)
	timeout := 100 * time.Millisecond
	opts.AcquireTimeout = &timeout
	pool, err := floatpool.NewLazy(opts)
	require.NoError(t, err)
	defer pool.Close(context.Background())

	ctx := context.Background()
	co1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer co1.Close(ctx)

	start := time.Now()
	_, err = pool.Acquire(ctx)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, floatpool.ErrPoolTimedOut))
	assert.InDelta(t, timeout.Milliseconds(), elapsed.Milliseconds(), 80)
}

// Scenario 4: close-while-waiting. max=1: a waiter blocked on Acquire
// observes PoolClosed promptly after Close, even with a long-lived ctx.
func TestCloseWakesWaiters(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	opts := newTestOptions(connector, 1, 0)
	timeout := 5 * time.Second
	opts.AcquireTimeout = &timeout
	pool, err := floatpool.NewLazy(opts)
	require.NoError(t, err)

	ctx := context.Background()
	co1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer co1.Close(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(ctx)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond) // let the waiter block in the wait queue

	start := time.Now()
	pool.Close(ctx)

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, floatpool.ErrPoolClosed))
		assert.Less(t, time.Since(start), 200*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("waiter never observed pool closing")
	}
}

// Scenario 5: min-connections top-up. A lazily constructed pool with
// min=3 reaches num_idle==3 on its own, with zero acquires.
func TestMinConnectionsTopUp(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	pool, err := floatpool.NewLazy(newTestOptions(connector, 10, 3))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	assert.Eventually(t, func() bool {
		return pool.NumIdle() == 3 && pool.Size() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

// New with MinConnections==0 still probes the backend eagerly (surfacing
// a misconfigured Options immediately) but leaves no connection parked
// idle for a pool whose floor is 0.
func TestNewProbesWithoutLeavingIdleFloor(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	pool, err := floatpool.New(context.Background(), newTestOptions(connector, 5, 0))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	assert.EqualValues(t, 0, pool.Size())
	assert.EqualValues(t, 0, pool.NumIdle())
}

// New surfaces a construct failure immediately rather than returning a
// pool that will only fail on the first Acquire.
func TestNewSurfacesConstructFailure(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{failUntil: 100}
	_, err := floatpool.New(context.Background(), newTestOptions(connector, 5, 0))
	require.Error(t, err)
}

// Scenario 6: validation eviction. test_before_acquire=true with a
// connection whose ping fails the first time it is reused from idle:
// acquire retries and returns a fresh connection, leaving size unchanged
// across the event (the exact case where an async guard release would
// transiently have pushed size above max=1).
func TestValidationEviction(t *testing.T) {
	t.Parallel()
	var pingCalls atomic.Int64
	connector := &fakeConnector{
		pingFunc: func() error {
			if pingCalls.Add(1) == 2 {
				return errors.New("simulated ping failure")
			}
			return nil
		},
	}
	opts := newTestOptions(connector, 1, 0)
	opts.TestBeforeAcquire = true
	pool, err := floatpool.NewLazy(opts)
	require.NoError(t, err)
	defer pool.Close(context.Background())

	ctx := context.Background()
	co1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	firstID := co1.Conn().id
	require.NoError(t, co1.Close(ctx))

	assert.Eventually(t, func() bool {
		return pool.NumIdle() == 1
	}, time.Second, 5*time.Millisecond)

	co2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, co2.Conn().id, "a failed ping should discard the idle connection")
	assert.EqualValues(t, 1, pool.Size())
}

// Construct retries: a connector that fails its first two attempts still
// succeeds within the configured retry budget.
func TestAcquireRetriesConstruct(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{failUntil: 2}
	opts := newTestOptions(connector, 1, 0)
	opts.ConnectRetries = 5
	pool, err := floatpool.NewLazy(opts)
	require.NoError(t, err)
	defer pool.Close(context.Background())

	co, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, pool.Size())
	_ = co.Close(context.Background())
}

// Property: concurrent acquire/release traffic never pushes size above
// MaxConnections.
func TestSizeNeverExceedsMax(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	const max = 4
	pool, err := floatpool.NewLazy(newTestOptions(connector, max, 0))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			co, err := pool.Acquire(gctx)
			if err != nil {
				return err
			}
			if pool.Size() > max {
				t.Errorf("size %d exceeded max %d", pool.Size(), max)
			}
			time.Sleep(time.Millisecond)
			return co.Close(context.Background())
		})
	}
	require.NoError(t, g.Wait())
}

// Detach removes a connection from the pool's accounting without closing
// it, and promptly notifies maintenance to replace it when min_connections
// is configured.
func TestDetachTriggersReplacement(t *testing.T) {
	t.Parallel()
	connector := &fakeConnector{}
	pool, err := floatpool.NewLazy(newTestOptions(connector, 5, 1))
	require.NoError(t, err)
	defer pool.Close(context.Background())

	assert.Eventually(t, func() bool {
		return pool.Size() == 1
	}, time.Second, 5*time.Millisecond)

	co, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	raw, err := co.Detach(context.Background())
	require.NoError(t, err)
	assert.False(t, raw.closed.Load(), "Detach must not close the connection")

	assert.Eventually(t, func() bool {
		return pool.Size() == 1
	}, time.Second, 5*time.Millisecond, "maintenance should replace the detached connection")
}
