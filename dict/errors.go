package dict

import "fmt"

// ErrKind classifies a DictError the way the source surfaced out-parameter
// error strings, but as a closed Go enum usable with errors.Is/As.
type ErrKind int

const (
	InvalidKey ErrKind = iota
	TypeError
	SqlError
	WriteUncertain
	NotFound
)

func (k ErrKind) String() string {
	switch k {
	case InvalidKey:
		return "invalid_key"
	case TypeError:
		return "type_error"
	case SqlError:
		return "sql_error"
	case WriteUncertain:
		return "write_uncertain"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// DictError is the error type every Dict operation returns on failure. It
// wraps the underlying cause so callers can errors.Is/errors.As through
// to a *value.TypeError, a txn sentinel, or a raw driver error.
type DictError struct {
	Kind ErrKind
	Key  string
	Err  error
}

func (e *DictError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("sqldict: %s for %q: %s", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("sqldict: %s: %s", e.Kind, e.Err)
}

func (e *DictError) Unwrap() error { return e.Err }
