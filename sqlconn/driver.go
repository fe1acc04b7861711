package sqlconn

import (
	"database/sql/driver"
	"sync"
)

// registered drivers
var (
	driversMu sync.RWMutex
	drivers   = make(map[string]driver.DriverContext)
)

// RegisterDriver registers a driver.DriverContext under name, for later
// use by Open. Typically called from an init func of a driver package.
func RegisterDriver(name string, d driver.DriverContext) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}
