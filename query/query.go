// Package query builds the SQL statements and parameter lists the
// dictionary core issues: SELECT (point lookup and iteration), the
// set-batch UPSERT, the inc-batch UPDATE, and DELETE. It never touches
// database/sql; it only produces a Statement a driver layer can execute.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/value"
)

// Recurse selects how an iteration's WHERE clause treats the field that
// has not yet been bound to a concrete path segment.
type Recurse int

const (
	RecurseNone Recurse = iota
	RecurseOne
	RecurseFull
)

// Sort selects ORDER BY construction for iteration.
type Sort int

const (
	SortNone Sort = iota
	SortByKey
	SortByValue
)

// ParamStyle is the placeholder syntax a SQL dialect expects.
type ParamStyle int

const (
	ParamQuestion ParamStyle = iota // MySQL, SQLite, SQL Server: "?"
	ParamDollar                     // PostgreSQL: "$1", "$2", ...
)

// Capabilities is the driver feature bitmap the query builder consults
// once per statement to choose the UPSERT dialect.
type Capabilities struct {
	PrepStatements bool
	OnDuplicateKey bool
	OnConflictDo   bool
	Params         ParamStyle
}

// Statement is a ready-to-execute SQL text plus its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// ErrKeyContinues is returned when a path binds more segments than a
// pattern declares fields for (spec scenario E6).
var ErrKeyContinues = errors.New("sqldict: key continues past the matched pattern")

func render(style ParamStyle, sql string) string {
	if style != ParamDollar {
		return sql
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String()
}

func qualify(tablePrefix, table string) string {
	return tablePrefix + table
}
