// Package journal records committed schedule changes in SQLite.
//
// A Journal is a notify.Notifier: each broadcast or directed message is
// appended as one row. It is an audit trail only; the scheduler never
// reloads events from it.
//
// # Deterministic ordering
//
// Read returns rows ordered by seq ASC, id ASC. Seq comes from the
// scheduler's logical clock, and id breaks ties between the copies of a
// message written for different clients.
//
// # Database configuration
//
// The database runs in WAL mode with synchronous=NORMAL, a 5s busy
// timeout and foreign keys on. The pool is limited to one connection,
// which also keeps a ":memory:" database alive for the Journal's lifetime.
package journal
