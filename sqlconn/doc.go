// Package sqlconn adapts database/sql/driver connectors into a
// floatpool.Connection/floatpool.ConnectOptions backend, so a generic
// floatpool.Pool can manage raw SQL driver connections directly instead of
// going through database/sql's own built-in pool.
package sqlconn
