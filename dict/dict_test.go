package dict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/iterate"
	"github.com/sqldef/sqldict/sqlconn"
	_ "github.com/sqldef/sqldict/sqlconn/sqlite3"
	"github.com/sqldef/sqldict/txn"
	"github.com/sqldef/sqldict/value"
)

func quotaMap() dictmap.Map {
	return dictmap.Map{
		Pattern:       "shared/q/$/lim",
		Table:         "Q",
		PatternFields: []dictmap.Field{{Column: "u", Type: value.String}},
		ValueField:    []string{"v"},
		ValueTypes:    []value.Kind{value.Int64},
	}
}

func mapWithExpire() dictmap.Map {
	return dictmap.Map{
		Pattern:       "shared/e/$/lim",
		Table:         "E",
		PatternFields: []dictmap.Field{{Column: "u", Type: value.String}},
		ValueField:    []string{"v"},
		ValueTypes:    []value.Kind{value.Int64},
		ExpireField:   "expire",
	}
}

func openTestDict(t *testing.T, maps []dictmap.Map, ddl []string) *Dict {
	t.Helper()
	conn, err := sqlconn.Open(sqlconn.Config{DbType: "sqlite3", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for _, stmt := range ddl {
		_, err := conn.DB.Exec(stmt)
		require.NoError(t, err)
	}

	return &Dict{conn: conn, maps: maps, settings: Settings{}}
}

func TestLookupFindsExistingRow(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{quotaMap()}, []string{
		"CREATE TABLE Q (u TEXT, v INTEGER)",
		"INSERT INTO Q (u, v) VALUES ('alice', 5)",
	})

	result, err := d.Lookup(context.Background(), OpContext{}, "shared/q/alice/lim")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, []string{"5"}, result.Values)
}

func TestLookupUnknownPathIsNotFound(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{quotaMap()}, []string{
		"CREATE TABLE Q (u TEXT, v INTEGER)",
	})

	result, err := d.Lookup(context.Background(), OpContext{}, "shared/q/alice/lim")
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestLookupSkipsExpiredRow(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{mapWithExpire()}, []string{
		"CREATE TABLE E (u TEXT, v INTEGER, expire INTEGER)",
		"INSERT INTO E (u, v, expire) VALUES ('alice', 5, 1)",
	})

	result, err := d.Lookup(context.Background(), OpContext{}, "shared/e/alice/lim")
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestTransactionSetThenLookupSeesWrite(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{quotaMap()}, []string{
		"CREATE TABLE Q (u TEXT PRIMARY KEY, v INTEGER)",
	})

	tx, err := d.NewTransaction(context.Background(), OpContext{})
	require.NoError(t, err)
	require.NoError(t, tx.Set(context.Background(), quotaMap(), []string{"alice"}, "7"))
	outcome, err := tx.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, txn.Committed, outcome)

	result, err := d.Lookup(context.Background(), OpContext{}, "shared/q/alice/lim")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, []string{"7"}, result.Values)
}

func TestExpireScanDeletesPastTTLRows(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{mapWithExpire()}, []string{
		"CREATE TABLE E (u TEXT, v INTEGER, expire INTEGER)",
		"INSERT INTO E (u, v, expire) VALUES ('alice', 5, 1)",
	})

	scanned, err := d.ExpireScan(context.Background())
	require.NoError(t, err)
	assert.True(t, scanned)

	var count int
	require.NoError(t, d.conn.DB.QueryRow("SELECT COUNT(*) FROM E").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestIterateInitStreamsAllMatchingRows(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{quotaMap()}, []string{
		"CREATE TABLE Q (u TEXT, v INTEGER)",
		"INSERT INTO Q (u, v) VALUES ('alice', 5), ('bob', 9)",
	})

	// Bare prefix, no trailing slash — the literal shape spec.md's E2
	// scenario and the sqldictd CLI actually pass.
	it := d.IterateInit(OpContext{}, "shared/q", iterate.Flags{Recurse: true})
	defer it.Destroy()

	seen := map[string]string{}
	for {
		key, values, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[key] = values[0]
	}
	assert.Equal(t, map[string]string{
		"shared/q/alice/lim": "5",
		"shared/q/bob/lim":   "9",
	}, seen)
}

func TestIterateInitStreamsAllMatchingRowsTrailingSlash(t *testing.T) {
	d := openTestDict(t, []dictmap.Map{quotaMap()}, []string{
		"CREATE TABLE Q (u TEXT, v INTEGER)",
		"INSERT INTO Q (u, v) VALUES ('alice', 5), ('bob', 9)",
	})

	it := d.IterateInit(OpContext{}, "shared/q/", iterate.Flags{Recurse: true})
	defer it.Destroy()

	seen := map[string]string{}
	for {
		key, values, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[key] = values[0]
	}
	assert.Equal(t, map[string]string{
		"shared/q/alice/lim": "5",
		"shared/q/bob/lim":   "9",
	}, seen)
}
