package query

import (
	"fmt"

	"github.com/sqldef/sqldict/dictmap"
)

// BuildExpireDelete composes the bulk "DELETE FROM T WHERE expire_field
// <= ?" statement the expiry scan runs once per TTL-bearing map, per
// spec §4.9. Unlike BuildDelete it targets every expired row in the
// table, not one key.
func BuildExpireDelete(caps Capabilities, tablePrefix string, m dictmap.Map, nowSeconds int64) (Statement, error) {
	if !m.HasExpire() {
		return Statement{}, fmt.Errorf("sqldict: map for table %q has no expire_field", m.Table)
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s <= ?", qualify(tablePrefix, m.Table), m.ExpireField)
	return Statement{SQL: render(caps.Params, sql), Args: []any{nowSeconds}}, nil
}
