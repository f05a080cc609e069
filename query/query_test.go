package query

import (
	"testing"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestE1LookupSelect(t *testing.T) {
	s, err := BuildSelect(SelectSpec{
		Map:     quotaMap(),
		Recurse: RecurseNone,
		Bound:   []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT v FROM Q WHERE u = ?", s.SQL)
	assert.Equal(t, []any{"alice"}, s.Args)
}

func TestE2IterateFullRecursionSelect(t *testing.T) {
	s, err := BuildSelect(SelectSpec{
		Map:     quotaMap(),
		Recurse: RecurseFull,
		Bound:   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT v, u FROM Q WHERE u LIKE ?", s.SQL)
	assert.Equal(t, []any{"/%"}, s.Args)
}

func TestE6KeyContinuesPastPattern(t *testing.T) {
	_, err := BuildSelect(SelectSpec{
		Map:     quotaMap(),
		Recurse: RecurseNone,
		Bound:   []string{"alice", "extra"},
	})
	assert.ErrorIs(t, err, ErrKeyContinues)
}

func TestRecurseOneAlreadyBoundUsesLiteralForms(t *testing.T) {
	s, err := BuildSelect(SelectSpec{
		Map:     quotaMap(),
		Recurse: RecurseOne,
		Bound:   []string{"alice"},
	})
	require.NoError(t, err)
	assert.Contains(t, s.SQL, "u LIKE '%'")
	assert.Contains(t, s.SQL, "u NOT LIKE '%/%'")
	assert.Equal(t, []any{"alice"}, s.Args)
}

func TestRecurseOneUnboundEmitsLikeNotLike(t *testing.T) {
	s, err := BuildSelect(SelectSpec{
		Map:     quotaMap(),
		Recurse: RecurseOne,
		Bound:   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT v, u FROM Q WHERE u LIKE ? AND u NOT LIKE ?", s.SQL)
	assert.Equal(t, []any{"/%", "/%/%"}, s.Args)
}

func TestInvariant5SetBatchSingleStatementOrderedColumns(t *testing.T) {
	m1 := quotaMap()
	m1.ValueField = []string{"v1"}
	m2 := quotaMap()
	m2.Table = "Q"
	m2.ValueField = []string{"v2"}

	caps := Capabilities{OnDuplicateKey: true}
	s, err := BuildUpsert(caps, "", []SetEntry{
		{Map: m1, ValueText: "5"},
		{Map: m2, ValueText: "9"},
	}, []string{"alice"}, false, "", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO Q (v1, v2, u) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v1 = ?, v2 = ?", s.SQL)
	assert.Equal(t, []any{int64(5), int64(9), "alice", int64(5), int64(9)}, s.Args)
}

func TestUpsertOnConflictDialect(t *testing.T) {
	caps := Capabilities{OnConflictDo: true, Params: ParamDollar}
	s, err := BuildUpsert(caps, "", []SetEntry{{Map: quotaMap(), ValueText: "5"}}, []string{"alice"}, false, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Q (v, u) VALUES ($1, $2) ON CONFLICT (u) DO UPDATE SET v = $3", s.SQL)
}

func TestUpsertBareInsertFallback(t *testing.T) {
	caps := Capabilities{}
	s, err := BuildUpsert(caps, "", []SetEntry{{Map: quotaMap(), ValueText: "5"}}, []string{"alice"}, false, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Q (v, u) VALUES (?, ?)", s.SQL)
}

func TestUpsertWritesExpireAsNowPlusSecs(t *testing.T) {
	m := quotaMap()
	m.ExpireField = "expire"
	caps := Capabilities{OnDuplicateKey: true}
	s, err := BuildUpsert(caps, "", []SetEntry{{Map: m, ValueText: "5"}}, []string{"alice"}, false, "", 60, 1000)
	require.NoError(t, err)
	assert.Contains(t, s.SQL, "expire")
	assert.Contains(t, s.Args, int64(1060))
}

func TestInvariant6IncrementSingleStatement(t *testing.T) {
	caps := Capabilities{}
	s, err := BuildIncrement(caps, "", []IncEntry{{Map: quotaMap(), Delta: 3}}, []string{"alice"}, false, "")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE Q SET v = v + ? WHERE u = ?", s.SQL)
	assert.Equal(t, []any{int64(3), "alice"}, s.Args)
}

func TestDeleteExactMatch(t *testing.T) {
	caps := Capabilities{}
	s, err := BuildDelete(caps, "", quotaMap(), []string{"alice"}, false, "")
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM Q WHERE u = ?", s.SQL)
	assert.Equal(t, []any{"alice"}, s.Args)
}

func TestPrivateScopeBindsUsername(t *testing.T) {
	m := quotaMap()
	m.UsernameField = "username"
	s, err := BuildSelect(SelectSpec{
		Map:      m,
		Recurse:  RecurseNone,
		Bound:    []string{"alice"},
		Private:  true,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT v FROM Q WHERE u = ? AND username = ?", s.SQL)
	assert.Equal(t, []any{"alice", "bob"}, s.Args)
}
