// Package pattern implements the matcher that binds a slash-delimited
// path to a declarative "$"-wildcard pattern, in exact and partial
// (iteration-prefix) modes.
package pattern

import "strings"

// Mode selects whether Match requires the whole path to be consumed
// (Exact, used by point lookups and set/unset/inc) or accepts a
// directory-style prefix (Partial, used by iteration).
type Mode int

const (
	Exact Mode = iota
	Partial
)

const Wildcard = '$'

// Result is the outcome of matching a pattern against a path.
type Result struct {
	// Matched is true when the path (Exact) or path prefix (Partial)
	// satisfies the pattern.
	Matched bool

	// Values holds the bound wildcard values, in pattern-declaration
	// order, for however many wildcards the match consumed.
	Values []string

	// Continues is set when the pattern was fully consumed but the path
	// had characters left over — "Key continues past the matched
	// pattern" (spec invariant, scenario E6). Matched is always false
	// when it is set.
	Continues bool
}

// Match walks pattern and path jointly. A literal requires character
// equality; a '$' consumes the path up to the next '/' (or to the end of
// the path if the pattern's wildcard is itself at the end).
//
// In Partial mode a path that runs out before the pattern still succeeds
// provided either (a) the already-consumed pattern prefix ends exactly at
// a '/' boundary, or (b) recurse is false and the unconsumed pattern tail
// has at most one '$' and no '/' other than a leading one that opens the
// wildcard's segment (the one-level case).
func Match(pat, path string, mode Mode, recurse bool) Result {
	var values []string
	i, j := 0, 0

	for i < len(pat) && j < len(path) {
		if pat[i] == Wildcard {
			if i+1 == len(pat) {
				// A wildcard that ends the pattern takes the rest of the
				// path; a single trailing '/' on that value is dropped.
				values = append(values, strings.TrimSuffix(path[j:], "/"))
				i++
				j = len(path)
				continue
			}
			end := strings.IndexByte(path[j:], '/')
			if end < 0 {
				end = len(path)
			} else {
				end += j
			}
			values = append(values, path[j:end])
			i++
			j = end
			continue
		}
		if pat[i] != path[j] {
			return Result{}
		}
		i++
		j++
	}

	// A single trailing '/' left on the path (e.g. "shared/q/alice/", the
	// directory-style spelling of a prefix) carries no information beyond
	// what was already bound; drop it rather than treating it as leftover
	// path.
	if j == len(path)-1 && path[j] == '/' {
		j = len(path)
	}

	patDone := i == len(pat)
	pathDone := j == len(path)

	if patDone && !pathDone {
		return Result{Continues: true, Values: values}
	}

	switch mode {
	case Exact:
		return Result{Matched: patDone && pathDone, Values: values}

	case Partial:
		if patDone {
			return Result{Matched: pathDone, Values: values}
		}
		// Path exhausted first; pat[i:] is the unconsumed tail. The
		// consumed prefix can reach a '/' boundary from either side: the
		// path already included a trailing '/' (pat[i-1] == '/', the char
		// just consumed), or the path stopped bare and the next pattern
		// character still to be consumed is the '/' that opens the next,
		// still-wildcard-bearing segment (pat[i] == '/', with at least one
		// '$' left in the tail — a bare '/' before pure trailing literal,
		// with nothing left to bind, is not a boundary to allow).
		tail := pat[i:]
		boundary := (i > 0 && pat[i-1] == '/') ||
			(i < len(pat) && pat[i] == '/' && strings.IndexByte(tail, Wildcard) >= 0)
		oneField := !recurse && atMostOneWildcardBeforeSlash(tail)
		return Result{Matched: boundary || oneField, Values: values}

	default:
		return Result{}
	}
}

func atMostOneWildcardBeforeSlash(tail string) bool {
	// A single leading '/' immediately followed by '$' merely opens the
	// one remaining wildcard segment (the bare-path case, e.g. tail ==
	// "/$/lim"); strip it before checking for a further, genuinely
	// intervening '/'. A '/' that instead opens onto pure trailing
	// literal text (nothing left to bind) is a real separator, not this
	// boundary case, and must not be stripped.
	if strings.HasPrefix(tail, "/"+string(Wildcard)) {
		tail = tail[1:]
	}
	if idx := strings.IndexByte(tail, '/'); idx >= 0 {
		return false
	}
	return strings.Count(tail, string(Wildcard)) <= 1
}

// NumWildcards reports how many '$' positions a pattern declares.
func NumWildcards(pat string) int {
	return strings.Count(pat, string(Wildcard))
}

// Segment is one slash-delimited piece of a pattern: either a literal or
// a wildcard placeholder.
type Segment struct {
	Literal    string
	IsWildcard bool
}

// Segments splits a pattern into its literal/wildcard pieces, preserving
// the '/' separators implicitly (join with "/" to reconstruct).
func Segments(pat string) []Segment {
	parts := strings.Split(pat, "/")
	segs := make([]Segment, len(parts))
	for idx, p := range parts {
		if p == string(Wildcard) {
			segs[idx] = Segment{IsWildcard: true}
		} else {
			segs[idx] = Segment{Literal: p}
		}
	}
	return segs
}

// Substitute rebuilds a full path from a pattern and a complete set of
// bound values, one per wildcard, in order. It is the inverse used by
// invariant 1 (match ⇒ substitute(match.values) == path) and by the
// iteration engine's key reconstruction.
func Substitute(pat string, values []string) string {
	segs := Segments(pat)
	var b strings.Builder
	vi := 0
	for idx, seg := range segs {
		if idx > 0 {
			b.WriteByte('/')
		}
		if seg.IsWildcard {
			if vi < len(values) {
				b.WriteString(values[vi])
				vi++
			}
		} else {
			b.WriteString(seg.Literal)
		}
	}
	return b.String()
}
