package floatpool

import (
	"context"
	"time"
)

// Metadata describes a pooled connection's age at the time a hook runs.
// IdleFor is how long the connection sat in the idle queue before the
// current acquire; it is zero for a connection that was just constructed,
// and always zero in AfterReleaseHook.
type Metadata struct {
	CreatedAt time.Time
	Age       time.Duration
	IdleFor   time.Duration
}

// BeforeAcquireHook runs after a connection has been reattached from idle
// or freshly constructed, but before it is handed to the caller. Returning
// false causes the connection to be discarded (CloseHard) and acquire to
// retry with a different connection.
type BeforeAcquireHook[C Connection] func(ctx context.Context, conn C, meta Metadata) bool

// AfterReleaseHook runs when a Checkout is released, before the connection
// is returned to the idle queue. Returning keep=false discards the
// connection gracefully (Close); returning a non-nil error discards it
// hard (CloseHard), since a failing hook means the connection may be in an
// inconsistent state.
type AfterReleaseHook[C Connection] func(ctx context.Context, conn C, meta Metadata) (keep bool, err error)
