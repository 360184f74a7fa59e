// Package sqlhook wraps a database/sql driver so that every statement and
// transaction is recorded by the query collector of the request that issued
// it. The collector is looked up in the context of each call; calls without
// a collector run untouched.
package sqlhook

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"debugbar/internal/collector"
	"debugbar/internal/debugbar"
	"debugbar/internal/domain"
)

// Recorder receives events from the wrapped driver.
type Recorder interface {
	RecordQuery(sql string, bindings []domain.Binding, opts collector.QueryOptions)
	RecordTransaction(event string, opts collector.QueryOptions)
}

// Transaction marker labels.
const (
	EventBegin    = "Begin Transaction"
	EventCommit   = "Commit Transaction"
	EventRollback = "Rollback Transaction"
)

// Options configures the wrapper.
type Options struct {
	// Connection is the connection name events are grouped under.
	Connection string
	// Driver labels events; Open defaults it to the driver name.
	Driver string
	// Resolve finds the recorder for a call. Defaults to the query
	// collector of the request's debug bar.
	Resolve func(ctx context.Context) Recorder
	// Now is the clock used for durations. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Resolve == nil {
		o.Resolve = func(ctx context.Context) Recorder { return debugbar.QueriesFrom(ctx) }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Open opens a *sql.DB through the registered driver driverName with every
// connection wrapped.
func Open(driverName, dsn string, opts Options) (*sql.DB, error) {
	opened, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	drv := opened.Driver()
	_ = opened.Close()

	var connector driver.Connector
	if dc, ok := drv.(driver.DriverContext); ok {
		connector, err = dc.OpenConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("open connector %s: %w", driverName, err)
		}
	} else {
		connector = dsnConnector{dsn: dsn, drv: drv}
	}

	if opts.Driver == "" {
		opts.Driver = driverName
	}
	return sql.OpenDB(NewConnector(connector, opts)), nil
}

// NewConnector wraps parent so that connections it opens are recorded.
func NewConnector(parent driver.Connector, opts Options) driver.Connector {
	return &connector{parent: parent, opts: opts.withDefaults()}
}

type connector struct {
	parent driver.Connector
	opts   Options
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	cn, err := c.parent.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{parent: cn, opts: c.opts}, nil
}

func (c *connector) Driver() driver.Driver {
	return wrappedDriver{parent: c.parent.Driver(), opts: c.opts}
}

type wrappedDriver struct {
	parent driver.Driver
	opts   Options
}

func (d wrappedDriver) Open(name string) (driver.Conn, error) {
	cn, err := d.parent.Open(name)
	if err != nil {
		return nil, err
	}
	return &conn{parent: cn, opts: d.opts}, nil
}

// dsnConnector adapts drivers that do not implement driver.DriverContext.
type dsnConnector struct {
	dsn string
	drv driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }

func (c dsnConnector) Driver() driver.Driver { return c.drv }

// recordQuery reports a finished statement. driver.ErrSkip means the call
// is retried through another path and is not recorded.
func (o Options) recordQuery(rec Recorder, query string, args []driver.NamedValue, start time.Time, err error) {
	if rec == nil || errors.Is(err, driver.ErrSkip) {
		return
	}
	d := max(0, o.Now().Sub(start))
	rec.RecordQuery(query, bindings(args), collector.QueryOptions{
		Connection: o.Connection,
		Driver:     o.Driver,
		Duration:   &d,
		Err:        err,
	})
}

func (o Options) recordTransaction(rec Recorder, event string, err error) {
	if rec == nil {
		return
	}
	rec.RecordTransaction(event, collector.QueryOptions{
		Connection: o.Connection,
		Driver:     o.Driver,
		Err:        err,
	})
}

func bindings(args []driver.NamedValue) []domain.Binding {
	if len(args) == 0 {
		return nil
	}
	out := make([]domain.Binding, len(args))
	for i, a := range args {
		out[i] = domain.Binding{Name: a.Name, Value: a.Value}
	}
	return out
}
