// Package engine wires the event store, the request dispatcher and the
// notifier into a Scheduler.
//
// ARCHITECTURE:
//
// Every operation reaches the store through Scheduler.Handle, whether it
// was called synchronously on the caller's goroutine or queued with one of
// the *Async methods and run by a dispatcher worker. Handle is therefore
// the single place where committed changes are turned into notifications.
//
// Request flow:
//  1. Events are validated at the boundary (start < end, owner set).
//     Invalid input never reaches the store.
//  2. The request is stamped with a request id.
//  3. Handle applies it to the store, which runs the conflict check under
//     its write lock.
//  4. Each committed change is stamped by the logical Clock and broadcast.
//
// Notifications:
// One Broadcast per successful add, remove or replace, and one per event
// accepted by a batch. A replace whose re-add is rejected has still
// removed the original, so it is broadcast as a removal.
//
// Ordering:
// Store mutations are totally ordered by lock acquisition. Async requests
// are dequeued FIFO but may complete out of order when more than one
// worker runs. Notification seq numbers are strictly increasing but, under
// concurrency, need not follow lock order.
package engine
