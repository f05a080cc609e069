package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatchSubstituteRoundTrip(t *testing.T) {
	pat := "shared/quota/$/$/limit"
	path := "shared/quota/domain1/user1/limit"

	r := Match(pat, path, Exact, false)
	require.True(t, r.Matched)
	assert.Equal(t, path, Substitute(pat, r.Values))
}

func TestE1ExactLookup(t *testing.T) {
	// map{pattern="shared/q/$/lim", pattern_fields=[("u",STRING)]}
	r := Match("shared/q/$/lim", "shared/q/alice/lim", Exact, false)
	require.True(t, r.Matched)
	assert.Equal(t, []string{"alice"}, r.Values)
}

func TestE2IteratePrefixFullRecursion(t *testing.T) {
	// iterate("shared/q", RECURSE) against pattern "shared/q/$/lim" — the
	// bare path spec.md's E2 scenario and the CLI actually pass, with no
	// trailing slash appended.
	r := Match("shared/q/$/lim", "shared/q", Partial, true)
	require.True(t, r.Matched)
	assert.Empty(t, r.Values)
}

func TestE2IteratePrefixBarePathTrailingSlashEquivalent(t *testing.T) {
	// The trailing-slash spelling of the same prefix must match
	// identically to the bare spelling above.
	r := Match("shared/q/$/lim", "shared/q/", Partial, true)
	require.True(t, r.Matched)
	assert.Empty(t, r.Values)
}

func TestE2IteratePrefixOneLevelBarePath(t *testing.T) {
	// The same bare prefix must also match for one-level (RECURSE_ONE)
	// iteration, not only full recursion.
	r := Match("shared/q/$/lim", "shared/q", Partial, false)
	require.True(t, r.Matched)
	assert.Empty(t, r.Values)
}

func TestE6KeyContinuesPastPattern(t *testing.T) {
	r := Match("shared/q/$/lim", "shared/q/alice/lim/extra", Exact, false)
	assert.False(t, r.Matched)
	assert.True(t, r.Continues)
}

func TestRecurseOffNeverReturnsKeyWithExtraSlash(t *testing.T) {
	// One-level iteration must not descend past the enumerated child: a
	// path whose next segment is itself a literal (not the final
	// wildcard) should not be treated as a one-level match.
	r := Match("shared/q/$/lim", "shared/q/alice", Partial, false)
	assert.False(t, r.Matched)
}

func TestPartialMatchAtTopLevelBoundary(t *testing.T) {
	r := Match("shared/q/$/lim", "shared/", Partial, true)
	require.True(t, r.Matched)
	assert.Empty(t, r.Values)
}

func TestTrailingSlashStripped(t *testing.T) {
	r := Match("shared/q/$", "shared/q/alice/", Partial, true)
	require.True(t, r.Matched)
	assert.Equal(t, []string{"alice"}, r.Values)
}

func TestNumWildcards(t *testing.T) {
	assert.Equal(t, 2, NumWildcards("shared/quota/$/$/limit"))
	assert.Equal(t, 0, NumWildcards("shared/quota/limit"))
}
