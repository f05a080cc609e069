package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/value"
)

// SetEntry is one pending write merged into a single UPSERT row. Every
// entry in a batch shares the same table, scope, and bound pattern
// values (the mergeability invariant, checked by package txn); each
// entry contributes its own map's first value column.
type SetEntry struct {
	Map       dictmap.Map
	ValueText string
}

var ErrEmptyBatch = errors.New("sqldict: empty set batch")

// BuildUpsert composes the INSERT ... VALUES (...) statement for a set
// batch, appending an ON DUPLICATE KEY UPDATE / ON CONFLICT DO UPDATE
// clause (or nothing) depending on caps, per spec §4.4.
func BuildUpsert(caps Capabilities, tablePrefix string, entries []SetEntry, bound []string, private bool, username string, expireSeconds int, nowSeconds int64) (Statement, error) {
	if len(entries) == 0 {
		return Statement{}, ErrEmptyBatch
	}
	m0 := entries[0].Map
	for _, e := range entries[1:] {
		if e.Map.Table != m0.Table {
			return Statement{}, fmt.Errorf("sqldict: set batch spans tables %q and %q", m0.Table, e.Map.Table)
		}
	}

	var insertCols []string
	var insertArgs []any
	var updateCols []string
	var updateArgs []any

	for _, e := range entries {
		col := e.Map.ValueField[0]
		enc, err := value.Encode(e.Map.ValueTypes[0], e.ValueText, "")
		if err != nil {
			return Statement{}, err
		}
		insertCols = append(insertCols, col)
		insertArgs = append(insertArgs, enc)
		updateCols = append(updateCols, col)
		updateArgs = append(updateArgs, enc)
	}

	if private && m0.HasUsername() {
		insertCols = append(insertCols, m0.UsernameField)
		insertArgs = append(insertArgs, username)
	}

	if expireSeconds > 0 && m0.HasExpire() {
		insertCols = append(insertCols, m0.ExpireField)
		insertArgs = append(insertArgs, nowSeconds+int64(expireSeconds))
	}

	var conflictCols []string
	for i, f := range m0.PatternFields {
		var text string
		if i < len(bound) {
			text = bound[i]
		}
		enc, err := value.Encode(f.Type, text, "")
		if err != nil {
			return Statement{}, err
		}
		insertCols = append(insertCols, f.Column)
		insertArgs = append(insertArgs, enc)
		conflictCols = append(conflictCols, f.Column)
	}
	if private && m0.HasUsername() {
		conflictCols = append(conflictCols, m0.UsernameField)
	}

	placeholders := make([]string, len(insertArgs))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		qualify(tablePrefix, m0.Table), strings.Join(insertCols, ", "), strings.Join(placeholders, ", "))

	args := insertArgs

	switch {
	case caps.OnDuplicateKey:
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = c + " = ?"
		}
		fmt.Fprintf(&b, " ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
		args = append(args, updateArgs...)

	case caps.OnConflictDo:
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = c + " = ?"
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
		args = append(args, updateArgs...)

	default:
		// Bare INSERT; caller/schema is responsible for forbidding
		// duplicates on a driver with neither capability.
	}

	return Statement{SQL: render(caps.Params, b.String()), Args: args}, nil
}
