// Package dictmap holds the declarative map configuration (pattern →
// table binding) and the map-selection logic: picking the first matching
// map for a path, and enumerating candidate maps for iteration.
package dictmap

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sqldef/sqldict/pattern"
	"github.com/sqldef/sqldict/util"
	"github.com/sqldef/sqldict/value"
	"gopkg.in/yaml.v3"
)

const (
	ScopeShared  = "shared/"
	ScopePrivate = "priv/"
)

// Field is a single pattern wildcard position: its SQL column and type.
type Field struct {
	Column string     `yaml:"column"`
	Type   value.Kind `yaml:"type"`
}

// Map binds a pattern to a SQL table.
type Map struct {
	Pattern       string     `yaml:"pattern"`
	Table         string     `yaml:"table"`
	PatternFields []Field    `yaml:"pattern_fields"`
	ValueField    []string   `yaml:"value_field"`
	ValueTypes    []value.Kind `yaml:"value_types"`
	UsernameField string     `yaml:"username_field"`
	ExpireField   string     `yaml:"expire_field"`
}

// HasExpire reports whether rows in this map carry a TTL column.
func (m Map) HasExpire() bool { return m.ExpireField != "" }

// HasUsername reports whether this map scopes rows by username.
func (m Map) HasUsername() bool { return m.UsernameField != "" }

// IsPrivate reports whether path falls in the priv/ scope, i.e. whether
// the operation's username should be bound into the generated query.
func IsPrivate(path string) bool {
	return strings.HasPrefix(path, ScopePrivate)
}

// file is the on-disk shape of a map configuration file.
type file struct {
	Maps []Map `yaml:"maps"`
}

// LoadMaps parses a list of maps from a YAML configuration file and
// validates referential correctness.
func LoadMaps(path string) ([]Map, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictmap: read %s: %w", path, err)
	}
	return ParseMaps(buf)
}

// ParseMaps parses a list of maps from YAML bytes.
func ParseMaps(buf []byte) ([]Map, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("dictmap: parse: %w", err)
	}
	if err := Validate(f.Maps); err != nil {
		return nil, err
	}
	return f.Maps, nil
}

// MergeMaps overlays override maps onto base maps, matching by
// (table, pattern). Mirrors the override-wins shape used to combine a
// base generator config with a per-environment override file.
func MergeMaps(base, override []Map) []Map {
	result := make([]Map, len(base))
	copy(result, base)

	for _, ov := range override {
		replaced := false
		for i, m := range result {
			if m.Table == ov.Table && m.Pattern == ov.Pattern {
				result[i] = ov
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, ov)
		}
	}
	return result
}

// Validate checks referential correctness: every map names a table, the
// pattern_fields count matches the pattern's wildcard count, value_field
// is non-empty and has one value_types entry per column, username and
// expire columns are disjoint from pattern/value columns, and any two
// maps sharing a table agree on username_field (the mergeable invariant
// from spec §3, checked at load time rather than deferred to the first
// batch flush). Maps sharing a table may differ in scope.
func Validate(maps []Map) error {
	byTable := map[string][]Map{}

	for _, m := range maps {
		if m.Table == "" {
			return fmt.Errorf("dictmap: map for pattern %q has no table", m.Pattern)
		}
		n := pattern.NumWildcards(m.Pattern)
		if n != len(m.PatternFields) {
			return fmt.Errorf("dictmap: pattern %q has %d wildcards but %d pattern_fields",
				m.Pattern, n, len(m.PatternFields))
		}
		if len(m.ValueField) == 0 {
			return fmt.Errorf("dictmap: map %q has no value_field", m.Pattern)
		}
		if len(m.ValueTypes) != len(m.ValueField) {
			return fmt.Errorf("dictmap: map %q has %d value_field but %d value_types",
				m.Pattern, len(m.ValueField), len(m.ValueTypes))
		}

		cols := map[string]bool{}
		for _, f := range m.PatternFields {
			cols[f.Column] = true
		}
		for _, v := range m.ValueField {
			cols[v] = true
		}
		if m.UsernameField != "" && cols[m.UsernameField] {
			return fmt.Errorf("dictmap: map %q username_field %q collides with a pattern/value column",
				m.Pattern, m.UsernameField)
		}
		if m.ExpireField != "" && cols[m.ExpireField] {
			return fmt.Errorf("dictmap: map %q expire_field %q collides with a pattern/value column",
				m.Pattern, m.ExpireField)
		}

		byTable[m.Table] = append(byTable[m.Table], m)
	}

	// Walk tables in sorted order so a config with multiple conflicts
	// always reports the same one first, regardless of Go's random map
	// iteration order.
	for table, ms := range util.CanonicalMapIter(byTable) {
		for i := 1; i < len(ms); i++ {
			if ms[i].UsernameField != ms[0].UsernameField {
				return fmt.Errorf("dictmap: table %q has maps disagreeing on username_field (%q vs %q)",
					table, ms[0].UsernameField, ms[i].UsernameField)
			}
		}
	}

	return nil
}
