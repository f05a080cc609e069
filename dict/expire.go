package dict

import (
	"context"
	"time"

	"github.com/sqldef/sqldict/expire"
)

// ExpireScan deletes every row past its expire column across all maps
// that declare one. Returns whether any map had an expire column at all,
// per spec §4.9 (a distinct signal from "ran but deleted nothing").
func (d *Dict) ExpireScan(ctx context.Context) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	scanned, err := expire.Scan(ctx, d.conn, d.conn.Capabilities, d.settings.TablePrefix, d.maps, time.Now().Unix(), d.settings.ExpireConcurrency)
	if err != nil {
		return scanned, &DictError{Kind: SqlError, Err: err}
	}
	return scanned, nil
}
