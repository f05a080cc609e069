// Package sqlconn has the SQL driver connection layer. Never deal with
// dictionary semantics here: it only opens connections, reports what the
// underlying driver can do, and hands out transactions.
package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/sqldef/sqldict/query"
)

// Logger is the minimal logging surface sqlconn and its callers share.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

type StdoutLogger struct{}

func (StdoutLogger) Print(v ...any)                 { fmt.Print(v...) }
func (StdoutLogger) Printf(format string, v ...any) { fmt.Printf(format, v...) }
func (StdoutLogger) Println(v ...any)               { fmt.Println(v...) }

type NullLogger struct{}

func (NullLogger) Print(v ...any)                 {}
func (NullLogger) Printf(format string, v ...any) {}
func (NullLogger) Println(v ...any)               {}

// Config names a backend and how to reach it. DbType selects the driver
// and DSN builder the way the legacy single-binary driver package
// dispatched on DbType; each backend subpackage contributes its own
// DSN() function.
type Config struct {
	DbType   string // "mysql", "postgres", "sqlserver", "sqlite3"
	DSN      string // pre-built DSN; if empty, the backend subpackage builds one from the fields below
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
	SslMode  string
}

// capabilitiesFor returns the write-statement capability flags and the
// placeholder style for each supported backend, mirroring the
// ON DUPLICATE KEY / ON CONFLICT DO branching the query builder needs.
func capabilitiesFor(dbType string) (query.Capabilities, error) {
	switch dbType {
	case "mysql":
		return query.Capabilities{PrepStatements: true, OnDuplicateKey: true, Params: query.ParamQuestion}, nil
	case "postgres":
		return query.Capabilities{PrepStatements: true, OnConflictDo: true, Params: query.ParamDollar}, nil
	case "sqlserver":
		return query.Capabilities{PrepStatements: true, Params: query.ParamQuestion}, nil
	case "sqlite3":
		return query.Capabilities{PrepStatements: true, OnConflictDo: true, Params: query.ParamQuestion}, nil
	default:
		return query.Capabilities{}, fmt.Errorf("sqlconn: unsupported db type %q", dbType)
	}
}

// driverNameFor maps a Config.DbType to the database/sql driver name
// registered by the backend's blank import.
func driverNameFor(dbType string) (string, error) {
	switch dbType {
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	case "sqlserver":
		return "sqlserver", nil
	case "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("sqlconn: unsupported db type %q", dbType)
	}
}

// Conn is an opened, capability-tagged database handle.
type Conn struct {
	DB           *sql.DB
	Capabilities query.Capabilities
	dbType       string
	dsn          string
}

// cacheEntry is a refcounted *sql.DB shared by every Open call for the
// same (driver, dsn) pair, so repeated short-lived lookups don't each pay
// for their own connection pool.
type cacheEntry struct {
	db       *sql.DB
	refCount int
}

// IdleCap bounds how many idle connections a shared *sql.DB keeps open.
const IdleCap = 10

var (
	cacheMu sync.Mutex
	cache   = map[string]*cacheEntry{}
)

func cacheKey(driverName, dsn string) string {
	return driverName + "\x00" + dsn
}

// Open returns a cached connection for (DbType, DSN), opening and
// registering a new one on first use. Close must be called exactly once
// per Open to release the reference.
func Open(config Config, dsnBuilder func(Config) string) (*Conn, error) {
	driverName, err := driverNameFor(config.DbType)
	if err != nil {
		return nil, err
	}
	caps, err := capabilitiesFor(config.DbType)
	if err != nil {
		return nil, err
	}

	dsn := config.DSN
	if dsn == "" && dsnBuilder != nil {
		dsn = dsnBuilder(config)
	}

	key := cacheKey(driverName, dsn)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	entry, ok := cache[key]
	if !ok {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxIdleConns(IdleCap)
		if driverName == "sqlite" {
			// A :memory: database is private to one connection; letting
			// the pool open more than one silently loses every table.
			db.SetMaxOpenConns(1)
		}
		entry = &cacheEntry{db: db}
		cache[key] = entry
	}
	entry.refCount++

	return &Conn{DB: entry.db, Capabilities: caps, dbType: config.DbType, dsn: dsn}, nil
}

// Close releases this Conn's reference to its cached *sql.DB, closing the
// underlying pool once the last reference is gone.
func (c *Conn) Close() error {
	driverName, err := driverNameFor(c.dbType)
	if err != nil {
		return err
	}
	key := cacheKey(driverName, c.dsn)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	entry, ok := cache[key]
	if !ok {
		return nil
	}
	entry.refCount--
	if entry.refCount > 0 {
		return nil
	}
	delete(cache, key)
	return entry.db.Close()
}

// execTx adapts a *sql.Tx to txn.Execer without importing the txn
// package here, keeping sqlconn ignorant of batching semantics.
type execTx struct {
	tx *sql.Tx
}

// NewExecTx begins a transaction on c and wraps it to satisfy
// txn.Execer's structural interface (Exec/Commit/Rollback).
func (c *Conn) NewExecTx(ctx context.Context) (*execTx, error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &execTx{tx: tx}, nil
}

func (e *execTx) Exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e *execTx) Commit(ctx context.Context) error   { return e.tx.Commit() }
func (e *execTx) Rollback(ctx context.Context) error { return e.tx.Rollback() }

// ExecContext runs one statement directly against the shared pool,
// outside any transaction — used by expire.Scan, which deletes expired
// rows from each map in its own implicit transaction rather than the
// caller's.
func (c *Conn) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	res, err := c.DB.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
