package sqlconn

import "errors"

// errors
var (
	ErrDBClosed          = errors.New("sqlconn: db is closed")
	ErrMissingDriverName = errors.New("sqlconn: driver name is a mandatory config")
	ErrMissingURL        = errors.New("sqlconn: url is a mandatory config")
	ErrDriverNotFound    = errors.New("sqlconn: driver not registered")
)
