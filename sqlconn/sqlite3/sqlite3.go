// Package sqlite3 registers the SQLite database/sql driver and builds
// its DSN.
package sqlite3

import (
	_ "modernc.org/sqlite"

	"github.com/sqldef/sqldict/sqlconn"
)

// DSN returns the file path to open; modernc.org/sqlite takes a bare
// filename (or ":memory:") rather than a driver-specific DSN.
func DSN(config sqlconn.Config) string {
	return config.DbName
}
