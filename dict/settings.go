package dict

import "time"

// Settings are the process-wide knobs a Dict handle is opened with:
// resource caps and default timeouts for the driver behavior spec.md
// calls out of scope.
type Settings struct {
	// IdleCap is not consulted by Open: the shared sqlconn cache always
	// keeps at most sqlconn.IdleCap idle connections per pool.
	IdleCap int

	// QueryTimeout is applied via context.WithTimeout by Lookup and
	// ExpireScan when their ctx carries no deadline, so a caller that
	// doesn't manage its own deadline still gets one there. Transaction
	// and iteration calls use the caller's ctx as is.
	QueryTimeout time.Duration

	// ExpireConcurrency bounds how many per-map DELETEs ExpireScan runs
	// at once; zero means unlimited (bounded only by errgroup's default).
	ExpireConcurrency int

	// TablePrefix is prepended to every table name the query builder
	// qualifies, letting one database host multiple dictionary instances.
	TablePrefix string
}

// OpContext is the per-operation context spec.md's driver contract
// threads through every entrypoint.
type OpContext struct {
	Private       bool
	Username      string
	ExpireSecs    int
	HideLogValues bool
	MaxRows       int
}
