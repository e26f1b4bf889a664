package tcp

// socketState is the lifecycle stage of a Socket.
type socketState int

const (
	stateInitial socketState = iota
	stateConnecting
	stateOpened
	stateHalfClosed
	stateClosing
	stateClosingFast
	stateFreed
)

// Flags are per-socket behavior bits, set at construction.
type Flags uint8

const (
	// DontSendBuffered is accepted but not read by this package:
	// ForceClose always discards queued bytes, with or without it.
	DontSendBuffered Flags = 1 << iota
	// DontCloseOnReadClose suppresses the automatic graceful-close that
	// otherwise follows an EventReadClose.
	DontCloseOnReadClose
	// DontAutoclean is accepted but not read by this package: a Socket
	// always uses the Loop it was given and never allocates one itself.
	DontAutoclean
)
