// Package value implements the five SQL value kinds the dictionary core
// round-trips: string, signed/unsigned 64-bit integer, double, UUID, and
// hex-encoded blob. It never touches database/sql directly; it only
// converts between the dictionary's string representation and the values
// bound to or read from a SQL driver.
package value

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind is the closed set of SQL value kinds a pattern field or value
// column can declare.
type Kind int

const (
	String Kind = iota
	Int64
	Uint64
	Double
	UUID
	HexBlob
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Double:
		return "double"
	case UUID:
		return "uuid"
	case HexBlob:
		return "hexblob"
	default:
		return fmt.Sprintf("value.Kind(%d)", int(k))
	}
}

// ParseKind maps a config-file type name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string":
		return String, nil
	case "int64", "int":
		return Int64, nil
	case "uint64", "uint":
		return Uint64, nil
	case "double", "float64", "float":
		return Double, nil
	case "uuid":
		return UUID, nil
	case "hexblob", "blob", "hex":
		return HexBlob, nil
	default:
		return 0, fmt.Errorf("value: unknown kind %q", name)
	}
}

// UnmarshalYAML lets Kind appear as a plain string in map configuration.
func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// TypeError is returned whenever Encode or Decode rejects the input. It
// wraps the underlying strconv/hex/uuid error so callers can unwrap down
// to the parse failure.
type TypeError struct {
	Kind Kind
	Text string
	Err  error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("value: %s %q: %s", e.Kind, e.Text, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

// Encode parses text (with an optional suffix appended per-kind) into a
// value bindable as a database/sql query parameter.
func Encode(kind Kind, text, suffix string) (any, error) {
	switch kind {
	case String:
		return text + suffix, nil

	case Int64:
		if suffix != "" {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("suffix not allowed")}
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &TypeError{Kind: kind, Text: text, Err: err}
		}
		return n, nil

	case Uint64:
		if suffix != "" {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("suffix not allowed")}
		}
		if strings.HasPrefix(strings.TrimSpace(text), "-") {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("leading '-' not allowed")}
		}
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, &TypeError{Kind: kind, Text: text, Err: err}
		}
		// database/sql's driver.Value does not include uint64; bind the
		// canonical decimal text and let the column's numeric type coerce it.
		return strconv.FormatUint(n, 10), nil

	case Double:
		if suffix != "" {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("suffix not allowed")}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &TypeError{Kind: kind, Text: text, Err: err}
		}
		return f, nil

	case UUID:
		if suffix != "" {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("suffix not allowed")}
		}
		u, err := uuid.Parse(text)
		if err != nil {
			return nil, &TypeError{Kind: kind, Text: text, Err: err}
		}
		raw, _ := u.MarshalBinary()
		return raw, nil

	case HexBlob:
		if len(text)%2 != 0 {
			return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("odd-length hex string")}
		}
		raw, err := hex.DecodeString(text)
		if err != nil {
			return nil, &TypeError{Kind: kind, Text: text, Err: err}
		}
		// The suffix (e.g. "/%") is appended as raw text after the decoded
		// bytes so a HEXBLOB column can participate in a LIKE prefix query.
		return append(raw, []byte(suffix)...), nil

	default:
		return nil, &TypeError{Kind: kind, Text: text, Err: fmt.Errorf("unknown kind")}
	}
}

// Decode converts a raw driver-returned column value back to the
// dictionary's canonical string representation.
func Decode(kind Kind, raw any) (string, error) {
	if raw == nil {
		return "", nil
	}
	switch kind {
	case String:
		return asString(raw), nil

	case Int64:
		switch v := raw.(type) {
		case int64:
			return strconv.FormatInt(v, 10), nil
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		default:
			return "", &TypeError{Kind: kind, Text: fmt.Sprint(raw), Err: fmt.Errorf("unexpected driver type %T", raw)}
		}

	case Uint64:
		s := asString(raw)
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return "", &TypeError{Kind: kind, Text: s, Err: err}
		}
		return strconv.FormatUint(n, 10), nil

	case Double:
		switch v := raw.(type) {
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		default:
			s := asString(raw)
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return "", &TypeError{Kind: kind, Text: s, Err: err}
			}
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}

	case UUID:
		if raw16, ok := raw.([]byte); ok && len(raw16) == 16 {
			u, err := uuid.FromBytes(raw16)
			if err != nil {
				return "", &TypeError{Kind: kind, Err: err}
			}
			return u.String(), nil
		}
		// Some drivers (e.g. Postgres native uuid columns) hand back the
		// canonical text form directly.
		u, err := uuid.Parse(asString(raw))
		if err != nil {
			return "", &TypeError{Kind: kind, Err: err}
		}
		return u.String(), nil

	case HexBlob:
		b, ok := raw.([]byte)
		if !ok {
			b = []byte(asString(raw))
		}
		return hex.EncodeToString(b), nil

	default:
		return "", &TypeError{Kind: kind, Err: fmt.Errorf("unknown kind")}
	}
}

func asString(raw any) string {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
