package floatpool

import (
	"time"

	"github.com/google/uuid"
)

// live is a Connection accounted for in pool.size, in any state from just
// after construction through destruction — idle, checked out, or mid
// validation. guard owns that size-accounting slot for the connection's
// entire life and is released exactly once, at the point the connection is
// actually destroyed; it is never touched just because the connection
// changes between idle and checked-out.
type live[C Connection] struct {
	id        uuid.UUID
	raw       C
	createdAt time.Time
	guard     *floating[C]
}

func (l live[C]) metadata() Metadata {
	return Metadata{CreatedAt: l.createdAt, Age: time.Since(l.createdAt)}
}

// idleEntry is a live connection parked in the idle queue, ready for reuse.
type idleEntry[C Connection] struct {
	live      live[C]
	idleSince time.Time
}

func (e idleEntry[C]) metadata() Metadata {
	now := time.Now()
	return Metadata{
		CreatedAt: e.live.createdAt,
		Age:       now.Sub(e.live.createdAt),
		IdleFor:   now.Sub(e.idleSince),
	}
}
