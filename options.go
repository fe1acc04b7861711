package floatpool

import "context"

// ConnectOptions is an immutable, cloneable connection factory. A pool holds
// exactly one ConnectOptions, shared across the maintenance task and every
// acquiring caller, so implementations must be safe for concurrent use.
type ConnectOptions[C Connection] interface {
	// Connect establishes a new Connection. Construction failures are
	// retried by the pool's acquire loop (see Options.ConnectRetries);
	// Connect itself should not implement its own retry policy.
	Connect(ctx context.Context) (C, error)
}

// ConnectFunc adapts a plain function to ConnectOptions, the way
// http.HandlerFunc adapts a function to http.Handler.
type ConnectFunc[C Connection] func(ctx context.Context) (C, error)

// Connect implements ConnectOptions.
func (f ConnectFunc[C]) Connect(ctx context.Context) (C, error) {
	return f(ctx)
}
