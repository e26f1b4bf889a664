package timer

import "errors"

var (
	// ErrNotRunning is returned by AddTimeout/AddInterval and Stop against
	// a Service that has not been started, or has already stopped.
	ErrNotRunning = errors.New("timer: service is not running")

	// ErrAlreadyRunning is returned by Start when called more than once.
	ErrAlreadyRunning = errors.New("timer: service is already running")

	// ErrHandleStale is returned by Cancel/Modify when the handle no
	// longer names a live slot (already fired or already cancelled).
	ErrHandleStale = errors.New("timer: handle is stale")
)
