package query

import (
	"fmt"
	"strings"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/util"
	"github.com/sqldef/sqldict/value"
)

// SelectSpec describes a single point-lookup or iteration SELECT.
type SelectSpec struct {
	Map             dictmap.Map
	TablePrefix     string
	Bound           []string // already-bound pattern values, in declaration order
	Recurse         Recurse
	Private         bool
	Username        string
	Sort            Sort
	MaxRows         int
	AlreadyReturned int
	NoValue         bool // project pattern columns only, skip value_field
	Params          ParamStyle
}

// BuildSelect composes the SELECT for a point lookup (Recurse == RecurseNone)
// or one step of iteration (RecurseOne / RecurseFull), per spec §4.3.
func BuildSelect(spec SelectSpec) (Statement, error) {
	m := spec.Map
	numFields := len(m.PatternFields)
	bound := spec.Bound

	if len(bound) > numFields {
		return Statement{}, ErrKeyContinues
	}

	var cols []string
	if m.HasExpire() {
		cols = append(cols, m.ExpireField)
	}
	if !spec.NoValue {
		cols = append(cols, m.ValueField...)
	}
	if spec.Recurse != RecurseNone {
		for i := len(bound); i < numFields; i++ {
			cols = append(cols, m.PatternFields[i].Column)
		}
	}
	if len(cols) == 0 {
		cols = append(cols, "1")
	}

	var where []string
	var args []any

	switch spec.Recurse {
	case RecurseNone:
		for i, v := range bound {
			f := m.PatternFields[i]
			enc, err := value.Encode(f.Type, v, "")
			if err != nil {
				return Statement{}, err
			}
			where = append(where, f.Column+" = ?")
			args = append(args, enc)
		}

	case RecurseOne:
		for i := 0; i < len(bound) && i < numFields; i++ {
			f := m.PatternFields[i]
			enc, err := value.Encode(f.Type, bound[i], "")
			if err != nil {
				return Statement{}, err
			}
			where = append(where, f.Column+" = ?")
			args = append(args, enc)
		}
		if len(bound) < numFields {
			f := m.PatternFields[len(bound)]
			like, err := value.Encode(f.Type, "", "/%")
			if err != nil {
				return Statement{}, err
			}
			notLike, err := value.Encode(f.Type, "", "/%/%")
			if err != nil {
				return Statement{}, err
			}
			where = append(where, f.Column+" LIKE ?", f.Column+" NOT LIKE ?")
			args = append(args, like, notLike)
		} else if numFields > 0 {
			// The path already bound the final field: emit the literal
			// forms directly, not as bound parameters.
			last := m.PatternFields[numFields-1]
			where = append(where, last.Column+" LIKE '%'", last.Column+" NOT LIKE '%/%'")
		}

	case RecurseFull:
		for i := 0; i < len(bound) && i < numFields; i++ {
			f := m.PatternFields[i]
			enc, err := value.Encode(f.Type, bound[i], "")
			if err != nil {
				return Statement{}, err
			}
			where = append(where, f.Column+" = ?")
			args = append(args, enc)
		}
		if len(bound) < numFields {
			f := m.PatternFields[len(bound)]
			like, err := value.Encode(f.Type, "", "/%")
			if err != nil {
				return Statement{}, err
			}
			where = append(where, f.Column+" LIKE ?")
			args = append(args, like)
		}
	}

	if spec.Private && m.HasUsername() {
		where = append(where, m.UsernameField+" = ?")
		args = append(args, spec.Username)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), qualify(spec.TablePrefix, m.Table))
	if len(where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", strings.Join(where, " AND "))
	}

	switch spec.Sort {
	case SortByKey:
		if numFields > 0 {
			fieldCols := util.TransformSlice(m.PatternFields, func(f dictmap.Field) string { return f.Column })
			fmt.Fprintf(&b, " ORDER BY %s", strings.Join(fieldCols, ", "))
		}
	case SortByValue:
		if len(m.ValueField) > 0 {
			fmt.Fprintf(&b, " ORDER BY %s", strings.Join(m.ValueField, ", "))
		}
	}

	if spec.MaxRows > 0 {
		remaining := spec.MaxRows - spec.AlreadyReturned
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(&b, " LIMIT %d", remaining)
	}

	return Statement{SQL: render(spec.Params, b.String()), Args: args}, nil
}
