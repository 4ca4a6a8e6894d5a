// Package notify carries change notifications out of the scheduler.
//
// The scheduler only depends on the Notifier interface and treats every
// call as fire-and-forget: a notifier must not block for long and cannot
// fail the operation that produced the message. Hub delivers messages to
// registered clients on a periodic flush; the journal package records them
// in SQLite.
package notify
