package query

import (
	"fmt"
	"strings"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/value"
)

// IncEntry is one pending atomic-increment merged into a single UPDATE.
type IncEntry struct {
	Map   dictmap.Map
	Delta int64
}

// BuildIncrement composes UPDATE T SET col = col + ?, ... per spec §4.5.
func BuildIncrement(caps Capabilities, tablePrefix string, entries []IncEntry, bound []string, private bool, username string) (Statement, error) {
	if len(entries) == 0 {
		return Statement{}, ErrEmptyBatch
	}
	m0 := entries[0].Map
	for _, e := range entries[1:] {
		if e.Map.Table != m0.Table {
			return Statement{}, fmt.Errorf("sqldict: inc batch spans tables %q and %q", m0.Table, e.Map.Table)
		}
	}

	var sets []string
	var args []any
	for _, e := range entries {
		col := e.Map.ValueField[0]
		sets = append(sets, fmt.Sprintf("%s = %s + ?", col, col))
		args = append(args, e.Delta)
	}

	var where []string
	for i, f := range m0.PatternFields {
		var text string
		if i < len(bound) {
			text = bound[i]
		}
		enc, err := value.Encode(f.Type, text, "")
		if err != nil {
			return Statement{}, err
		}
		where = append(where, f.Column+" = ?")
		args = append(args, enc)
	}
	if private && m0.HasUsername() {
		where = append(where, m0.UsernameField+" = ?")
		args = append(args, username)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", qualify(tablePrefix, m0.Table), strings.Join(sets, ", "))
	if len(where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", strings.Join(where, " AND "))
	}

	return Statement{SQL: render(caps.Params, b.String()), Args: args}, nil
}
