package tcp

import "errors"

var (
	// ErrNoCandidates is returned by Dial when the address list is empty.
	ErrNoCandidates = errors.New("tcp: no address candidates")

	// ErrClosed is returned by Send against a socket that has already
	// begun closing or been freed. Close on such a socket returns nil.
	ErrClosed = errors.New("tcp: socket is closed")

	// ErrConnectFailed is returned by Dial when every candidate in the
	// address list failed; it wraps the last candidate's error.
	ErrConnectFailed = errors.New("tcp: connect exhausted all candidates")
)
