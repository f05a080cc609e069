// Package iterate implements the iteration engine: a cursor that chains
// across candidate maps, streams rows from each, and reconstructs the
// full key for every row by substituting decoded pattern-column values
// back into the owning map's pattern.
package iterate

import (
	"context"
	"strconv"
	"time"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/pattern"
	"github.com/sqldef/sqldict/query"
	"github.com/sqldef/sqldict/value"
)

// RowScanner is the row cursor shape iterate needs; *sql.Rows satisfies
// it without any adapter.
type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// QueryFunc executes one SELECT and returns its row cursor.
type QueryFunc func(ctx context.Context, sql string, args []any) (RowScanner, error)

// Flags mirrors the iteration flags named in spec §4.8.
type Flags struct {
	Recurse  bool
	ExactKey bool
	NoValue  bool
	Sort     query.Sort
	MaxRows  int // OpContext's iteration cap; 0 means unbounded
}

type colRole int

const (
	roleExpire colRole = iota
	roleValue
	rolePattern
	roleFiller
)

type colSpec struct {
	Kind value.Kind
	Role colRole
}

// Iter is an open iteration cursor: Open -> (Next)* -> Destroy.
type Iter struct {
	query       QueryFunc
	caps        query.Capabilities
	tablePrefix string
	maps        []dictmap.Map
	path        string
	flags       Flags
	private     bool
	username    string

	nextMapIdx int
	exactDone  bool
	destroyed  bool
	returned   int

	rows        RowScanner
	rowsMap     dictmap.Map
	rowsMatched []string
	rowsPlan    []colSpec
}

// New opens an iteration cursor over path, starting from the first
// candidate map. Nothing is executed until the first call to Next.
func New(qf QueryFunc, caps query.Capabilities, tablePrefix string, maps []dictmap.Map, path string, flags Flags, private bool, username string) *Iter {
	return &Iter{
		query:       qf,
		caps:        caps,
		tablePrefix: tablePrefix,
		maps:        maps,
		path:        path,
		flags:       flags,
		private:     private,
		username:    username,
	}
}

// Next returns the next (key, values) pair, or ok == false once every
// candidate map is exhausted. Running out of candidate maps is normal
// termination, not an error, even on the very first call — matching
// "allow_null_map": a path with no matching rows anywhere is simply an
// empty iteration, not a failure.
func (it *Iter) Next(ctx context.Context) (key string, values []string, ok bool, err error) {
	if it.destroyed {
		return "", nil, false, nil
	}
	if it.flags.MaxRows > 0 && it.returned >= it.flags.MaxRows {
		return "", nil, false, nil
	}

	for {
		if it.rows != nil {
			for it.rows.Next() {
				key, values, expired, err := it.scanRow()
				if err != nil {
					return "", nil, false, err
				}
				if expired {
					// Row is past its TTL (spec invariant 9: a row whose
					// expire_field <= now is never returned from lookup or
					// iterate); skip it and try the next row in this map.
					continue
				}
				it.returned++
				return key, values, true, nil
			}
			rowsErr := it.rows.Err()
			it.rows.Close()
			it.rows = nil
			if rowsErr != nil {
				return "", nil, false, rowsErr
			}
			if it.flags.ExactKey {
				return "", nil, false, nil
			}
		}

		more, err := it.advance(ctx)
		if err != nil {
			return "", nil, false, err
		}
		if !more {
			return "", nil, false, nil
		}
	}
}

// NextAsync runs Next in a goroutine and delivers its result through cb,
// the way the lookup/iteration suspension points in spec §5 hand results
// back through a driver continuation. A destroy that races the goroutine
// simply drops the result instead of invoking cb.
func (it *Iter) NextAsync(ctx context.Context, cb func(key string, values []string, ok bool, err error)) {
	go func() {
		key, values, ok, err := it.Next(ctx)
		if it.destroyed {
			return
		}
		cb(key, values, ok, err)
	}()
}

// Destroy aborts the iteration mid-flight, closing any open cursor and
// marking it so a racing async callback drops its result instead of
// delivering it.
func (it *Iter) Destroy() error {
	it.destroyed = true
	if it.rows == nil {
		return nil
	}
	err := it.rows.Close()
	it.rows = nil
	return err
}

func (it *Iter) advance(ctx context.Context) (bool, error) {
	if it.rows != nil {
		it.rows.Close()
		it.rows = nil
	}

	if it.flags.ExactKey {
		if it.exactDone {
			return false, nil
		}
		it.exactDone = true
		match, matched, err := dictmap.SelectExact(it.maps, it.path)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
		if err := it.openMap(ctx, match, query.RecurseNone); err != nil {
			return false, err
		}
		return true, nil
	}

	match, matched := dictmap.NextCandidate(it.maps, it.nextMapIdx, it.path, it.flags.Recurse)
	if !matched {
		it.nextMapIdx = len(it.maps)
		return false, nil
	}
	it.nextMapIdx = match.Index + 1

	recurse := query.RecurseOne
	if it.flags.Recurse {
		recurse = query.RecurseFull
	}
	if err := it.openMap(ctx, match, recurse); err != nil {
		return false, err
	}
	return true, nil
}

func (it *Iter) openMap(ctx context.Context, match dictmap.Match, recurse query.Recurse) error {
	spec := query.SelectSpec{
		Map:         match.Map,
		TablePrefix: it.tablePrefix,
		Bound:       match.Values,
		Recurse:     recurse,
		Private:     it.private,
		Username:    it.username,
		Sort:            it.flags.Sort,
		NoValue:         it.flags.NoValue,
		Params:          it.caps.Params,
		MaxRows:         it.flags.MaxRows,
		AlreadyReturned: it.returned,
	}
	stmt, err := query.BuildSelect(spec)
	if err != nil {
		return err
	}
	rows, err := it.query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return err
	}
	it.rows = rows
	it.rowsMap = match.Map
	it.rowsMatched = match.Values
	it.rowsPlan = colPlan(match.Map, len(match.Values), it.flags.NoValue, recurse)
	return nil
}

func colPlan(m dictmap.Map, boundCount int, noValue bool, recurse query.Recurse) []colSpec {
	var plan []colSpec
	if m.HasExpire() {
		plan = append(plan, colSpec{Kind: value.Int64, Role: roleExpire})
	}
	if !noValue {
		for _, k := range m.ValueTypes {
			plan = append(plan, colSpec{Kind: k, Role: roleValue})
		}
	}
	if recurse != query.RecurseNone {
		for i := boundCount; i < len(m.PatternFields); i++ {
			plan = append(plan, colSpec{Kind: m.PatternFields[i].Type, Role: rolePattern})
		}
	}
	if len(plan) == 0 {
		plan = append(plan, colSpec{Role: roleFiller})
	}
	return plan
}

func (it *Iter) scanRow() (key string, values []string, expired bool, err error) {
	dest := make([]any, len(it.rowsPlan))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return "", nil, false, err
	}

	now := time.Now().Unix()
	var patternVals []string
	for i, spec := range it.rowsPlan {
		switch spec.Role {
		case roleExpire:
			expireText, err := value.Decode(value.Int64, dest[i])
			if err != nil {
				return "", nil, false, err
			}
			if expireText != "" {
				expireSecs, perr := strconv.ParseInt(expireText, 10, 64)
				if perr == nil && expireSecs <= now {
					expired = true
				}
			}
		case roleValue:
			if it.flags.NoValue {
				continue
			}
			text, err := value.Decode(spec.Kind, dest[i])
			if err != nil {
				return "", nil, false, err
			}
			values = append(values, text)
		case rolePattern:
			text, err := value.Decode(spec.Kind, dest[i])
			if err != nil {
				return "", nil, false, err
			}
			patternVals = append(patternVals, text)
		case roleFiller:
			// exists only to give SELECT a projection target.
		}
	}

	if expired {
		return "", nil, true, nil
	}

	allValues := make([]string, 0, len(it.rowsMatched)+len(patternVals))
	allValues = append(allValues, it.rowsMatched...)
	allValues = append(allValues, patternVals...)
	key = pattern.Substitute(it.rowsMap.Pattern, allValues)
	return key, values, false, nil
}
