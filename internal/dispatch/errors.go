package dispatch

import "errors"

var (
	// ErrClosed is returned by Submit once Stop has been called.
	ErrClosed = errors.New("dispatcher closed")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("dispatcher already started")

	// ErrHandlerPanic is reported on a Pending whose handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)
