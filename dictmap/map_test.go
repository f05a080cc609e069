package dictmap

import (
	"testing"

	"github.com/sqldef/sqldict/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaMap() Map {
	return Map{
		Pattern:       "shared/q/$/lim",
		Table:         "Q",
		PatternFields: []Field{{Column: "u", Type: value.String}},
		ValueField:    []string{"v"},
		ValueTypes:    []value.Kind{value.Int64},
	}
}

func TestSelectExactE1(t *testing.T) {
	m, ok, err := SelectExact([]Map{quotaMap()}, "shared/q/alice/lim")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, m.Values)
	assert.Equal(t, "Q", m.Map.Table)
}

func TestSelectExactE6KeyContinues(t *testing.T) {
	_, _, err := SelectExact([]Map{quotaMap()}, "shared/q/alice/lim/extra")
	require.Error(t, err)
}

func TestSelectExactFirstMatchWins(t *testing.T) {
	generic := Map{Pattern: "shared/q/$/lim", Table: "GENERIC", PatternFields: []Field{{Column: "u", Type: value.String}}, ValueField: []string{"v"}, ValueTypes: []value.Kind{value.Int64}}
	specific := Map{Pattern: "shared/q/$/lim", Table: "SPECIFIC", PatternFields: []Field{{Column: "u", Type: value.String}}, ValueField: []string{"v"}, ValueTypes: []value.Kind{value.Int64}}

	m, ok, err := SelectExact([]Map{generic, specific}, "shared/q/alice/lim")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GENERIC", m.Map.Table)
}

func TestNextCandidateE2Iteration(t *testing.T) {
	m, ok := NextCandidate([]Map{quotaMap()}, 0, "shared/q/", true)
	require.True(t, ok)
	assert.Equal(t, 0, m.Index)
	assert.Empty(t, m.Values)
}

func TestNextCandidateOneLevelRejectsTooManyUnbound(t *testing.T) {
	threeField := Map{
		Pattern:       "shared/q/$/$/lim",
		Table:         "Q3",
		PatternFields: []Field{{Column: "a", Type: value.String}, {Column: "b", Type: value.String}},
		ValueField:    []string{"v"},
		ValueTypes:    []value.Kind{value.Int64},
	}
	_, ok := NextCandidate([]Map{threeField}, 0, "shared/q/", false)
	assert.False(t, ok)
}

func TestValidateRejectsWildcardFieldMismatch(t *testing.T) {
	bad := quotaMap()
	bad.PatternFields = nil
	err := Validate([]Map{bad})
	require.Error(t, err)
}

func TestValidateRejectsDisagreeingUsernameFieldOnSameTable(t *testing.T) {
	a := quotaMap()
	a.UsernameField = "user"
	b := quotaMap()
	b.Pattern = "priv/q/$/lim"
	b.UsernameField = "owner"

	err := Validate([]Map{a, b})
	require.Error(t, err)
}

func TestMergeMapsOverrideWins(t *testing.T) {
	base := []Map{quotaMap()}
	override := quotaMap()
	override.ValueField = []string{"v2"}

	merged := MergeMaps(base, []Map{override})
	require.Len(t, merged, 1)
	assert.Equal(t, []string{"v2"}, merged[0].ValueField)
}

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate("priv/q/alice/lim"))
	assert.False(t, IsPrivate("shared/q/alice/lim"))
}
