package dict

import (
	"context"
	"strconv"
	"time"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/query"
	"github.com/sqldef/sqldict/value"
)

// LookupResult is the outcome of a point lookup: either Found with the
// decoded value_field columns, or not found — NotFound is its own case
// rather than an error, per spec §4.7.
type LookupResult struct {
	Found  bool
	Values []string
}

// Lookup performs a synchronous point lookup: select the matching map,
// build a RecurseNone SELECT, and return the first row whose expire
// column (if any) has not yet passed. A NULL primary value is surfaced
// as an empty string in the sync path (the async path downgrades it to
// NotFound instead, per spec §4.7).
func (d *Dict) Lookup(ctx context.Context, op OpContext, key string) (LookupResult, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	match, found, err := dictmap.SelectExact(d.maps, key)
	if err != nil {
		return LookupResult{}, &DictError{Kind: InvalidKey, Key: key, Err: err}
	}
	if !found {
		return LookupResult{}, nil
	}

	spec := query.SelectSpec{
		Map:         match.Map,
		TablePrefix: d.settings.TablePrefix,
		Bound:       match.Values,
		Recurse:     query.RecurseNone,
		Private:     op.Private,
		Username:    op.Username,
		Params:      d.conn.Capabilities.Params,
	}
	stmt, err := query.BuildSelect(spec)
	if err != nil {
		return LookupResult{}, &DictError{Kind: InvalidKey, Key: key, Err: err}
	}

	rows, err := d.conn.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return LookupResult{}, &DictError{Kind: SqlError, Key: key, Err: err}
	}
	defer rows.Close()

	nCols := 0
	if match.Map.HasExpire() {
		nCols++
	}
	nCols += len(match.Map.ValueTypes)

	now := time.Now().Unix()
	for rows.Next() {
		dest := make([]any, nCols)
		ptrs := make([]any, nCols)
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return LookupResult{}, &DictError{Kind: SqlError, Key: key, Err: err}
		}

		col := 0
		if match.Map.HasExpire() {
			expireText, err := value.Decode(value.Int64, dest[col])
			if err != nil {
				return LookupResult{}, &DictError{Kind: TypeError, Key: key, Err: err}
			}
			col++
			if expireText != "" {
				expireSecs, err := strconv.ParseInt(expireText, 10, 64)
				if err == nil && expireSecs <= now {
					continue // expired: skip to the next candidate row
				}
			}
		}

		values := make([]string, len(match.Map.ValueTypes))
		for i, kind := range match.Map.ValueTypes {
			text, err := value.Decode(kind, dest[col+i])
			if err != nil {
				return LookupResult{}, &DictError{Kind: TypeError, Key: key, Err: err}
			}
			values[i] = text
		}
		return LookupResult{Found: true, Values: values}, nil
	}
	if err := rows.Err(); err != nil {
		return LookupResult{}, &DictError{Kind: SqlError, Key: key, Err: err}
	}
	return LookupResult{}, nil
}

// LookupAsync runs Lookup in a goroutine tracked by d.Wait, invoking cb
// with the same outcome shape lookup would return synchronously. A NULL
// primary value is downgraded to NotFound here, unlike the sync path.
func (d *Dict) LookupAsync(ctx context.Context, op OpContext, key string, cb func(LookupResult, error)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		result, err := d.Lookup(ctx, op, key)
		if err == nil && result.Found && len(result.Values) > 0 && result.Values[0] == "" {
			result = LookupResult{}
		}
		cb(result, err)
	}()
}
