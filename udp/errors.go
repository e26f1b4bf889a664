package udp

import "errors"

var (
	// ErrNoCandidates is returned by Client/Server when the address list
	// is empty.
	ErrNoCandidates = errors.New("udp: no address candidates")

	// ErrBindFailed wraps the last candidate's error once every address
	// in the list has failed.
	ErrBindFailed = errors.New("udp: bind/connect exhausted all candidates")

	// ErrClosed is returned by Send/Read against a freed Endpoint.
	ErrClosed = errors.New("udp: endpoint is closed")
)
