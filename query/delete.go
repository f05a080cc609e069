package query

import (
	"fmt"
	"strings"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/value"
)

// BuildDelete composes DELETE FROM T WHERE <pattern cols exact> [AND
// username=?] for an "unset" operation. spec §6 names unset as part of
// the transaction contract without detailing its statement; this mirrors
// the exact-match WHERE construction used by RecurseNone lookups (§4.3)
// since unset always targets one fully-bound key.
func BuildDelete(caps Capabilities, tablePrefix string, m dictmap.Map, bound []string, private bool, username string) (Statement, error) {
	if len(bound) > len(m.PatternFields) {
		return Statement{}, ErrKeyContinues
	}

	var where []string
	var args []any
	for i, v := range bound {
		f := m.PatternFields[i]
		enc, err := value.Encode(f.Type, v, "")
		if err != nil {
			return Statement{}, err
		}
		where = append(where, f.Column+" = ?")
		args = append(args, enc)
	}
	if private && m.HasUsername() {
		where = append(where, m.UsernameField+" = ?")
		args = append(args, username)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", qualify(tablePrefix, m.Table))
	if len(where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", strings.Join(where, " AND "))
	}

	return Statement{SQL: render(caps.Params, b.String()), Args: args}, nil
}
