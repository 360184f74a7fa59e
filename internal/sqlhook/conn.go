package sqlhook

import (
	"context"
	"database/sql/driver"
)

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.SessionResetter    = (*conn)(nil)
	_ driver.Validator          = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
)

type conn struct {
	parent driver.Conn
	opts   Options
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		st  driver.Stmt
		err error
	)
	if pc, ok := c.parent.(driver.ConnPrepareContext); ok {
		st, err = pc.PrepareContext(ctx, query)
	} else {
		st, err = c.parent.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &stmt{parent: st, query: query, conn: c}, nil
}

func (c *conn) Close() error { return c.parent.Close() }

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var (
		t   driver.Tx
		err error
	)
	if bt, ok := c.parent.(driver.ConnBeginTx); ok {
		t, err = bt.BeginTx(ctx, opts)
	} else {
		//nolint:staticcheck // fallback for drivers without BeginTx
		t, err = c.parent.Begin()
	}

	rec := c.opts.Resolve(ctx)
	c.opts.recordTransaction(rec, EventBegin, err)
	if err != nil {
		return nil, err
	}
	return &tx{parent: t, rec: rec, opts: c.opts}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.parent.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := c.opts.Now()
	res, err := execer.ExecContext(ctx, query, args)
	c.opts.recordQuery(c.opts.Resolve(ctx), query, args, start, err)
	return res, err
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.parent.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := c.opts.Now()
	rows, err := queryer.QueryContext(ctx, query, args)
	c.opts.recordQuery(c.opts.Resolve(ctx), query, args, start, err)
	return rows, err
}

func (c *conn) Ping(ctx context.Context) error {
	if p, ok := c.parent.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *conn) ResetSession(ctx context.Context) error {
	if r, ok := c.parent.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *conn) IsValid() bool {
	if v, ok := c.parent.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nvc, ok := c.parent.(driver.NamedValueChecker); ok {
		return nvc.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

type tx struct {
	parent driver.Tx
	rec    Recorder
	opts   Options
}

func (t *tx) Commit() error {
	err := t.parent.Commit()
	t.opts.recordTransaction(t.rec, EventCommit, err)
	return err
}

func (t *tx) Rollback() error {
	err := t.parent.Rollback()
	t.opts.recordTransaction(t.rec, EventRollback, err)
	return err
}
