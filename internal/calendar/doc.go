// Package calendar defines the Event model shared by every layer.
//
// Events are values. Nothing in slotguard mutates a stored Event; an update
// is a remove followed by an insert of a new value with the same ID.
//
// Validate is the boundary check: an Event with Start >= End or without an
// owner never reaches the store or the conflict engine.
//
// Timestamps are Unix milliseconds.
package calendar
