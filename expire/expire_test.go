package expire

import (
	"context"
	"sync"
	"testing"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/query"
	"github.com/sqldef/sqldict/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecer struct {
	mu    sync.Mutex
	stmts []string
}

func (f *fakeExecer) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = append(f.stmts, sql)
	return 0, nil
}

func mapWithExpire(table string) dictmap.Map {
	return dictmap.Map{
		Pattern:       "shared/q/$/lim",
		Table:         table,
		PatternFields: []dictmap.Field{{Column: "u", Type: value.String}},
		ValueField:    []string{"v"},
		ValueTypes:    []value.Kind{value.Int64},
		ExpireField:   "expire",
	}
}

func TestScanDeletesOncePerTTLMap(t *testing.T) {
	execer := &fakeExecer{}
	maps := []dictmap.Map{mapWithExpire("Q"), mapWithExpire("R")}

	scanned, err := Scan(context.Background(), execer, query.Capabilities{}, "", maps, 1000, 0)
	require.NoError(t, err)
	assert.True(t, scanned)
	assert.Len(t, execer.stmts, 2)
}

func TestScanWithNoExpireMapsIsANoOp(t *testing.T) {
	execer := &fakeExecer{}
	maps := []dictmap.Map{{Pattern: "shared/q/$/lim", Table: "Q"}}

	scanned, err := Scan(context.Background(), execer, query.Capabilities{}, "", maps, 1000, 0)
	require.NoError(t, err)
	assert.False(t, scanned)
	assert.Empty(t, execer.stmts)
}
