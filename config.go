package floatpool

import (
	"time"

	"github.com/sirupsen/logrus"
)

// default option values, filled in by Validate for any field left zero.
var (
	defaultAcquireTimeout = 30 * time.Second
	defaultIdleTimeout    = 10 * time.Minute
	defaultMaxLifetime    = 30 * time.Minute
	defaultMaxConnections = int32(10)
	defaultMinConnections = int32(0)
	// defaultMaintenanceInterval caps the maintenance tick at 30s; the
	// actual interval is min(IdleTimeout, MaxLifetime, 30s) / 2.
	defaultMaintenanceInterval = 30 * time.Second
	// defaultConnectRetries bounds the construct-retry budget inside a
	// single Acquire call.
	defaultConnectRetries = 3
)

// Options configures a Pool. Fields left zero get the defaults above, filled
// in by Validate. IdleTimeout and MaxLifetime are pointers so "disabled"
// (no TTL) is distinguishable from "use the default".
type Options[C Connection] struct {
	// Connect is the factory used to construct new connections. Required.
	Connect ConnectOptions[C]

	// MaxConnections is the hard ceiling on pool size. Default 10.
	MaxConnections int32

	// MinConnections is the floor maintained by the background
	// maintenance task. Default 0.
	MinConnections int32

	// AcquireTimeout bounds Acquire's total wait. A zero duration means
	// try-once (never wait for a permit); nil defaults to 30s. Pointer for
	// the same reason as IdleTimeout/MaxLifetime: the zero value is a real,
	// distinct setting from "unset".
	AcquireTimeout *time.Duration

	// IdleTimeout is the idle-connection TTL enforced by maintenance. Nil
	// defaults to 10m (filled in by Validate); a zero duration disables
	// idle eviction entirely.
	IdleTimeout *time.Duration

	// MaxLifetime is the absolute connection TTL from creation. Nil
	// defaults to 30m (filled in by Validate); a zero duration disables
	// lifetime eviction.
	MaxLifetime *time.Duration

	// TestBeforeAcquire pings a connection (idle or freshly constructed)
	// before handing it out.
	TestBeforeAcquire bool

	// Fair reports FIFO ordering of blocked Acquire calls, which the
	// pool's wait queue always provides. Always forced to true by
	// Validate; the field exists so callers can still see and log the
	// setting.
	Fair bool

	// BeforeAcquire and AfterRelease are optional user hooks run with no
	// pool lock held.
	BeforeAcquire BeforeAcquireHook[C]
	AfterRelease  AfterReleaseHook[C]

	// ConnectRetries is the number of failed attempts (failed constructs
	// and rejected validations, counted together) a single Acquire call
	// makes before giving up with PoolTimedOut. Default 3.
	ConnectRetries int

	// Logger receives maintenance and lifecycle diagnostics. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// Validate checks the option set and fills in defaults for any field left
// at its zero value.
func (o *Options[C]) Validate() error {
	if o.Connect == nil {
		return wrapError(KindConfiguration, "Options.Connect is required", nil)
	}
	if o.MaxConnections <= 0 {
		o.MaxConnections = defaultMaxConnections
	}
	if o.MinConnections < 0 {
		o.MinConnections = defaultMinConnections
	}
	if o.MinConnections > o.MaxConnections {
		return wrapError(KindConfiguration, "MinConnections must not exceed MaxConnections", nil)
	}
	if o.AcquireTimeout == nil {
		d := defaultAcquireTimeout
		o.AcquireTimeout = &d
	}
	if o.IdleTimeout == nil {
		d := defaultIdleTimeout
		o.IdleTimeout = &d
	}
	if o.MaxLifetime == nil {
		d := defaultMaxLifetime
		o.MaxLifetime = &d
	}
	if o.ConnectRetries <= 0 {
		o.ConnectRetries = defaultConnectRetries
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	// The wait queue (waiter.go) always serves blocked Acquire calls in
	// FIFO order; there is no unfair mode to opt into, so this just
	// normalizes the field for anything that logs or inspects it.
	o.Fair = true
	return nil
}

// maintenanceInterval computes min(IdleTimeout, MaxLifetime, 30s) / 2, the
// wake cadence.
func (o *Options[C]) maintenanceInterval() time.Duration {
	interval := defaultMaintenanceInterval
	if o.IdleTimeout != nil && *o.IdleTimeout > 0 && *o.IdleTimeout < interval {
		interval = *o.IdleTimeout
	}
	if o.MaxLifetime != nil && *o.MaxLifetime > 0 && *o.MaxLifetime < interval {
		interval = *o.MaxLifetime
	}
	return interval / 2
}
