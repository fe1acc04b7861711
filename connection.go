package floatpool

import "context"

// Connection is the resource a Pool manages. Implementations are supplied
// by the caller; the pool never constructs one itself, only asks a
// ConnectOptions to do so.
//
// All three methods may perform I/O and must be safe to call exactly once
// each from the pool's own goroutines. Close and CloseHard are mutually
// exclusive terminal calls: the pool calls at most one of them for a given
// Connection.
type Connection interface {
	// Close performs a graceful shutdown, notifying the remote end where
	// applicable.
	Close(ctx context.Context) error

	// CloseHard performs a best-effort abrupt termination. Used when the
	// connection is already suspected broken, or the pool is closing under
	// contention and a graceful close isn't worth the risk of blocking.
	CloseHard(ctx context.Context) error

	// Ping is a liveness probe. Never called concurrently with any other
	// method on the same Connection.
	Ping(ctx context.Context) error
}
