// Package txn implements the transaction batcher: deferred set/inc/unset
// queues with a mergeability test, flushed into single multi-column SQL
// statements on a kind change, a non-mergeable op, or commit. Rollback
// discards the queues without flushing them.
package txn

import (
	"context"
	"errors"

	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/query"
)

// Execer is the minimal SQL transaction surface txn needs from the
// driver layer: execute one statement, commit, or roll back. Kept
// separate from database/sql so this package stays free of any SQL
// driver import.
type Execer interface {
	Exec(ctx context.Context, sql string, args []any) (rowsAffected int64, err error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ErrWriteUncertain should be returned (wrapped) by an Execer when the
// driver reports an ambiguous commit acknowledgement.
var ErrWriteUncertain = errors.New("sqldict: write uncertain")

// ErrDuplicatePendingKey is returned when a second pending entry in the
// same flush would bind the same column of the same row a pending entry
// already targets (spec §9's E3 open question, resolved here by
// rejecting rather than relying on driver column-rebind order).
var ErrDuplicatePendingKey = errors.New("sqldict: duplicate pending key in batch")

// CommitOutcome is the distinct, non-error result of Commit.
type CommitOutcome int

const (
	Committed CommitOutcome = iota
	CommittedNotFound
	CommittedUncertain
)

func (o CommitOutcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case CommittedNotFound:
		return "not_found"
	case CommittedUncertain:
		return "write_uncertain"
	default:
		return "unknown"
	}
}

type kind int

const (
	kindNone kind = iota
	kindSet
	kindInc
	kindUnset
)

type setEntry struct {
	m     dictmap.Map
	bound []string
	text  string
}

type incEntry struct {
	m     dictmap.Map
	bound []string
	delta int64
}

type unsetEntry struct {
	m     dictmap.Map
	bound []string
}

// Tx is a transaction context: Open -> (Flushing -> Open)* -> Committing
// -> {Committed, RolledBack}.
type Tx struct {
	execer      Execer
	caps        query.Capabilities
	tablePrefix string
	private     bool
	username    string
	expireSecs  int
	now         func() int64

	activeKind kind
	sets       []setEntry
	incs       []incEntry
	unsets     []unsetEntry

	sawInc       bool
	incAffected  int64
	sticky       error
	committed    bool
	rolledBack   bool
}

// New creates an open transaction context bound to execer.
func New(execer Execer, caps query.Capabilities, tablePrefix string, private bool, username string, expireSecs int, now func() int64) *Tx {
	return &Tx{
		execer:      execer,
		caps:        caps,
		tablePrefix: tablePrefix,
		private:     private,
		username:    username,
		expireSecs:  expireSecs,
		now:         now,
	}
}

// Err returns the sticky error, if any op has failed so far.
func (tx *Tx) Err() error { return tx.sticky }

func sameBound(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mergeable implements spec §4.6's test: same table, same scope, same
// username_field (when private), identical bound pattern values.
func mergeable(a, b dictmap.Map, boundA, boundB []string) bool {
	if a.Table != b.Table {
		return false
	}
	if dictmap.IsPrivate(a.Pattern) != dictmap.IsPrivate(b.Pattern) {
		return false
	}
	if dictmap.IsPrivate(a.Pattern) && a.UsernameField != b.UsernameField {
		return false
	}
	return sameBound(boundA, boundB)
}

// Set enqueues a set operation, merging it into the pending-sets queue
// when mergeable with what's already queued, else flushing first.
func (tx *Tx) Set(ctx context.Context, m dictmap.Map, bound []string, valueText string) error {
	if tx.sticky != nil {
		return nil
	}
	if err := tx.switchKind(ctx, kindSet); err != nil {
		return tx.fail(err)
	}
	if len(tx.sets) > 0 {
		last := tx.sets[len(tx.sets)-1]
		if !mergeable(last.m, m, last.bound, bound) {
			if err := tx.flushSets(ctx); err != nil {
				return tx.fail(err)
			}
		}
	}
	for _, e := range tx.sets {
		if e.m.Table == m.Table && e.m.ValueField[0] == m.ValueField[0] {
			return tx.fail(ErrDuplicatePendingKey)
		}
	}
	tx.sets = append(tx.sets, setEntry{m: m, bound: bound, text: valueText})
	return nil
}

// AtomicInc enqueues an increment operation.
func (tx *Tx) AtomicInc(ctx context.Context, m dictmap.Map, bound []string, delta int64) error {
	if tx.sticky != nil {
		return nil
	}
	if err := tx.switchKind(ctx, kindInc); err != nil {
		return tx.fail(err)
	}
	if len(tx.incs) > 0 {
		last := tx.incs[len(tx.incs)-1]
		if !mergeable(last.m, m, last.bound, bound) {
			if err := tx.flushIncs(ctx); err != nil {
				return tx.fail(err)
			}
		}
	}
	for _, e := range tx.incs {
		if e.m.Table == m.Table && e.m.ValueField[0] == m.ValueField[0] {
			return tx.fail(ErrDuplicatePendingKey)
		}
	}
	tx.incs = append(tx.incs, incEntry{m: m, bound: bound, delta: delta})
	return nil
}

// Unset enqueues a delete operation.
func (tx *Tx) Unset(ctx context.Context, m dictmap.Map, bound []string) error {
	if tx.sticky != nil {
		return nil
	}
	if err := tx.switchKind(ctx, kindUnset); err != nil {
		return tx.fail(err)
	}
	if len(tx.unsets) > 0 {
		last := tx.unsets[len(tx.unsets)-1]
		if !mergeable(last.m, m, last.bound, bound) {
			if err := tx.flushUnsets(ctx); err != nil {
				return tx.fail(err)
			}
		}
	}
	tx.unsets = append(tx.unsets, unsetEntry{m: m, bound: bound})
	return nil
}

// switchKind flushes whichever queue is active when the incoming op is a
// different kind (set<->inc cannot merge, per spec §4.6 step 1).
func (tx *Tx) switchKind(ctx context.Context, next kind) error {
	if tx.activeKind == next || tx.activeKind == kindNone {
		tx.activeKind = next
		return nil
	}
	if err := tx.flushActive(ctx); err != nil {
		return err
	}
	tx.activeKind = next
	return nil
}

func (tx *Tx) flushActive(ctx context.Context) error {
	switch tx.activeKind {
	case kindSet:
		return tx.flushSets(ctx)
	case kindInc:
		return tx.flushIncs(ctx)
	case kindUnset:
		return tx.flushUnsets(ctx)
	default:
		return nil
	}
}

func (tx *Tx) flushSets(ctx context.Context) error {
	if len(tx.sets) == 0 {
		return nil
	}
	entries := make([]query.SetEntry, len(tx.sets))
	for i, e := range tx.sets {
		entries[i] = query.SetEntry{Map: e.m, ValueText: e.text}
	}
	bound := tx.sets[0].bound
	private := tx.private && dictmap.IsPrivate(tx.sets[0].m.Pattern)
	stmt, err := query.BuildUpsert(tx.caps, tx.tablePrefix, entries, bound, private, tx.username, tx.expireSecs, tx.now())
	if err != nil {
		return err
	}
	if _, err := tx.execer.Exec(ctx, stmt.SQL, stmt.Args); err != nil {
		return err
	}
	tx.sets = nil
	return nil
}

func (tx *Tx) flushIncs(ctx context.Context) error {
	if len(tx.incs) == 0 {
		return nil
	}
	entries := make([]query.IncEntry, len(tx.incs))
	for i, e := range tx.incs {
		entries[i] = query.IncEntry{Map: e.m, Delta: e.delta}
	}
	bound := tx.incs[0].bound
	private := tx.private && dictmap.IsPrivate(tx.incs[0].m.Pattern)
	stmt, err := query.BuildIncrement(tx.caps, tx.tablePrefix, entries, bound, private, tx.username)
	if err != nil {
		return err
	}
	affected, err := tx.execer.Exec(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return err
	}
	tx.sawInc = true
	tx.incAffected += affected
	tx.incs = nil
	return nil
}

func (tx *Tx) flushUnsets(ctx context.Context) error {
	if len(tx.unsets) == 0 {
		return nil
	}
	// Unsets do not merge multiple maps into one row the way sets/incs
	// do (a row is simply deleted); flush one DELETE per queued entry in
	// queue order (spec preserves submission order within a transaction,
	// §5 "Ordering guarantees").
	for _, e := range tx.unsets {
		private := tx.private && dictmap.IsPrivate(e.m.Pattern)
		stmt, err := query.BuildDelete(tx.caps, tx.tablePrefix, e.m, e.bound, private, tx.username)
		if err != nil {
			return err
		}
		if _, err := tx.execer.Exec(ctx, stmt.SQL, stmt.Args); err != nil {
			return err
		}
	}
	tx.unsets = nil
	return nil
}

func (tx *Tx) fail(err error) error {
	if tx.sticky == nil {
		tx.sticky = err
	}
	return err
}

// Commit flushes any remaining pending queues and commits the underlying
// SQL transaction. A sticky error short-circuits into a rollback.
func (tx *Tx) Commit(ctx context.Context) (CommitOutcome, error) {
	if tx.sticky != nil {
		_ = tx.execer.Rollback(ctx)
		tx.rolledBack = true
		return 0, tx.sticky
	}

	if err := tx.flushActive(ctx); err != nil {
		tx.sticky = err
		_ = tx.execer.Rollback(ctx)
		tx.rolledBack = true
		return 0, err
	}

	if err := tx.execer.Commit(ctx); err != nil {
		if errors.Is(err, ErrWriteUncertain) {
			tx.committed = true
			return CommittedUncertain, nil
		}
		tx.sticky = err
		return 0, err
	}
	tx.committed = true

	if tx.sawInc && tx.incAffected == 0 {
		return CommittedNotFound, nil
	}
	return Committed, nil
}

// Rollback synchronously aborts any unflushed queues and issues a driver
// rollback.
func (tx *Tx) Rollback(ctx context.Context) error {
	tx.sets = nil
	tx.incs = nil
	tx.unsets = nil
	tx.rolledBack = true
	return tx.execer.Rollback(ctx)
}
