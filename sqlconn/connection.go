package sqlconn

import (
	"context"
	"database/sql/driver"

	"github.com/sinhashubham95/floatpool"
)

// Connection wraps a single database/sql/driver.Conn as a
// floatpool.Connection.
type Connection struct {
	raw driver.Conn
}

var _ floatpool.Connection = (*Connection)(nil)

// Raw returns the underlying driver connection, for issuing statements.
func (c *Connection) Raw() driver.Conn {
	return c.raw
}

// Close performs a graceful shutdown by invoking driver.Conn.Close.
// driver.Conn has no context-aware close, so ctx is accepted for interface
// parity but unused; drivers are expected to bound their own Close calls.
func (c *Connection) Close(ctx context.Context) error {
	return c.raw.Close()
}

// CloseHard is identical to Close for a plain driver.Conn: there is no
// cheaper abrupt-termination path below the driver interface.
func (c *Connection) CloseHard(ctx context.Context) error {
	return c.raw.Close()
}

// Ping probes liveness via driver.Pinger when the underlying connection
// implements it, the same optional-interface pattern database/sql itself
// uses internally. Connections that don't implement driver.Pinger are
// reported alive unconditionally.
func (c *Connection) Ping(ctx context.Context) error {
	pinger, ok := c.raw.(driver.Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}

// Connector adapts a *DB into a floatpool.ConnectOptions[*Connection], so
// it can be assigned directly to Options.Connect.
type Connector struct {
	DB *DB
}

var _ floatpool.ConnectOptions[*Connection] = Connector{}

// Connect opens a fresh driver.Conn via the underlying connector.
func (c Connector) Connect(ctx context.Context) (*Connection, error) {
	if c.DB.closed.Load() {
		return nil, ErrDBClosed
	}
	raw, err := c.DB.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Connection{raw: raw}, nil
}
