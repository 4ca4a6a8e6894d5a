// Package dispatch runs store operations on a fixed pool of worker
// goroutines.
//
// Callers submit a Request describing one operation and receive a Pending
// handle that resolves exactly once with the Reply. Requests are taken from
// a single FIFO queue; with more than one worker, completion order across
// requests is not defined.
//
// Stop closes the queue to new submissions, lets the workers finish every
// request already queued, and then joins them. Queued requests are never
// cancelled.
package dispatch
