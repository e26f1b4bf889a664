package eventloop

import "errors"

// Standard errors returned by Loop methods.
var (
	// ErrClosed is returned by Register/Submit once the loop has fully
	// shut down (Shutdown's dispatcher exit has already completed).
	ErrClosed = errors.New("eventloop: loop is closed")

	// ErrAlreadyRunning is returned by Start when the dispatcher goroutine
	// has already been spawned.
	ErrAlreadyRunning = errors.New("eventloop: loop is already running")

	// ErrNotRunning is returned by Register/Submit before Start has been
	// called, or while a Shutdown is still in progress.
	ErrNotRunning = errors.New("eventloop: loop is not running")

	// ErrFDRegistered is returned by Register when the entity's FD is
	// already known to the loop.
	ErrFDRegistered = errors.New("eventloop: fd already registered")

	// ErrFDNotRegistered is returned by Modify/Unregister for an unknown FD.
	ErrFDNotRegistered = errors.New("eventloop: fd not registered")
)
