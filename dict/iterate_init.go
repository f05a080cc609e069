package dict

import (
	"context"

	"github.com/sqldef/sqldict/iterate"
)

// IterateInit opens an iteration cursor over path. Nothing executes
// until the first call to iterate.Iter.Next.
func (d *Dict) IterateInit(op OpContext, path string, flags iterate.Flags) *iterate.Iter {
	if flags.MaxRows == 0 {
		flags.MaxRows = op.MaxRows
	}
	qf := func(ctx context.Context, sqlText string, args []any) (iterate.RowScanner, error) {
		rows, err := d.conn.DB.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return nil, &DictError{Kind: SqlError, Key: path, Err: err}
		}
		return rows, nil
	}
	return iterate.New(qf, d.conn.Capabilities, d.settings.TablePrefix, d.maps, path, flags, op.Private, op.Username)
}
