// Package dict is the public driver surface: it owns the SQL connection
// and composes the pure value/pattern/dictmap/query/txn/iterate packages
// into lookup, iteration, transaction, and expiry operations.
package dict

import (
	"context"
	"sync"
	"time"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/sqlconn"
	"github.com/sqldef/sqldict/txn"
)

// Dict is an opened dictionary handle bound to one SQL connection and one
// set of declarative maps.
type Dict struct {
	conn     *sqlconn.Conn
	maps     []dictmap.Map
	settings Settings
	logger   sqlconn.Logger

	wg sync.WaitGroup
}

// Open connects to the database named by driverName/dsn (one of
// sqlconn's supported DbType values) and validates maps before returning
// a handle. Validation failures are load-time errors, not deferred to the
// first operation.
func Open(driverName, dsn string, maps []dictmap.Map, settings Settings) (*Dict, error) {
	if err := dictmap.Validate(maps); err != nil {
		return nil, &DictError{Kind: InvalidKey, Err: err}
	}

	conn, err := sqlconn.Open(sqlconn.Config{DbType: driverName, DSN: dsn}, nil)
	if err != nil {
		return nil, &DictError{Kind: SqlError, Err: err}
	}

	logger := sqlconn.Logger(sqlconn.NullLogger{})

	return &Dict{
		conn:     conn,
		maps:     maps,
		settings: settings,
		logger:   logger,
	}, nil
}

// SetLogger overrides the default NullLogger, e.g. with sqlconn.StdoutLogger
// or a slog-backed adapter for the CLI entrypoint.
func (d *Dict) SetLogger(l sqlconn.Logger) { d.logger = l }

// Maps returns the declarative maps this handle was opened with, so a
// caller driving its own transaction (e.g. the sqldictd CLI) can select
// the map for a key without reaching into package internals.
func (d *Dict) Maps() []dictmap.Map { return d.maps }

// Close releases the underlying connection. Any handle-owned iteration or
// transaction still open becomes invalid.
func (d *Dict) Close() error {
	return d.conn.Close()
}

// Wait blocks until every LookupAsync goroutine spawned by this handle
// has finished delivering its callback. Goroutines started by an
// iteration's NextAsync are not tracked and are not waited for.
func (d *Dict) Wait() {
	d.wg.Wait()
}

// NewTransaction opens a batched write transaction bound to op's scope
// (private/shared, username, expire_secs). Commit/Rollback on the
// returned *txn.Tx drive the underlying SQL transaction.
func (d *Dict) NewTransaction(ctx context.Context, op OpContext) (*txn.Tx, error) {
	execTx, err := d.conn.NewExecTx(ctx)
	if err != nil {
		return nil, &DictError{Kind: SqlError, Err: err}
	}
	now := func() int64 { return time.Now().Unix() }
	return txn.New(execTx, d.conn.Capabilities, d.settings.TablePrefix, op.Private, op.Username, op.ExpireSecs, now), nil
}

// withTimeout applies Settings.QueryTimeout when ctx carries no deadline
// of its own, matching "out of scope" driver behavior actually enforcing
// the timeout rather than the core doing so.
func (d *Dict) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.settings.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.settings.QueryTimeout)
}
