package dictmap

import "github.com/sqldef/sqldict/pattern"

// Match pairs a matched map with its bound pattern values.
type Match struct {
	Index  int
	Map    Map
	Values []string
}

// SelectExact returns the first map (in declaration order) whose pattern
// exactly matches path. "First match wins" — the caller never needs to
// consider the rest once one is found.
func SelectExact(maps []Map, path string) (Match, bool, error) {
	for i, m := range maps {
		r := pattern.Match(m.Pattern, path, pattern.Exact, false)
		if r.Continues {
			return Match{}, false, errKeyContinues(path)
		}
		if r.Matched {
			return Match{Index: i, Map: m, Values: r.Values}, true, nil
		}
	}
	return Match{}, false, nil
}

// NextCandidate scans maps starting at fromIdx for the next one whose
// pattern partially matches path (the iteration-prefix form), honoring
// recurse. It implements the iteration engine's map-chaining cursor: the
// caller passes the index just past the last map it used.
func NextCandidate(maps []Map, fromIdx int, path string, recurse bool) (Match, bool) {
	for i := fromIdx; i < len(maps); i++ {
		m := maps[i]
		r := pattern.Match(m.Pattern, path, pattern.Partial, recurse)
		if !r.Matched {
			continue
		}
		// With recursion off, only a map whose next unbound field is the
		// single child being enumerated is a valid candidate: it must not
		// leave more than one pattern field unbound beyond what matched.
		if !recurse {
			remaining := len(m.PatternFields) - len(r.Values)
			if remaining > 1 {
				continue
			}
		}
		return Match{Index: i, Map: m, Values: r.Values}, true
	}
	return Match{}, false
}

type keyContinuesError struct{ path string }

func (e keyContinuesError) Error() string {
	return "Key continues past the matched pattern: " + e.path
}

func errKeyContinues(path string) error {
	return keyContinuesError{path: path}
}
