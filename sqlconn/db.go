package sqlconn

import (
	"database/sql/driver"
	"fmt"
	"io"
	"sync/atomic"
)

// Config is the set of parameters needed to open a DB.
type Config struct {
	DriverName string
	URL        string
}

// Validate checks that the mandatory fields are set.
func (c *Config) Validate() error {
	if c.DriverName == "" {
		return ErrMissingDriverName
	}
	if c.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// DB wraps a database/sql/driver.Connector as a floatpool connection
// factory. Unlike *sql.DB, DB performs no pooling of its own — every call
// to Connect opens a fresh driver.Conn, leaving all pooling, idle reuse,
// and lifecycle management to floatpool.Pool.
type DB struct {
	connector driver.Connector

	closed atomic.Bool
}

// Open looks up cfg.DriverName in the registry populated by RegisterDriver
// and opens a connector against cfg.URL. The returned *DB can be wrapped in
// a Connector and handed to floatpool.Options.Connect.
func Open(cfg *Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driversMu.RLock()
	d, ok := drivers[cfg.DriverName]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, cfg.DriverName)
	}
	c, err := d.OpenConnector(cfg.URL)
	if err != nil {
		return nil, err
	}
	return &DB{connector: c}, nil
}

// Close closes the underlying connector, if it implements io.Closer.
// Idempotent; a second call returns ErrDBClosed.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return ErrDBClosed
	}
	if c, ok := db.connector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
