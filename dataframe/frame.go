// Package dataframe implements the scatter/gather payload storage used by
// tcp.Socket's send queue: an ordered sequence of heap, memory-mapped, or
// file-descriptor-backed frames, drained head-first as a socket becomes
// writable.
package dataframe

// Kind discriminates the three admissible frame payload shapes. This is a
// tagged variant in place of the bit-flagged union the storage that
// inspired this package used: release and send behavior dispatch on Kind
// directly instead of checking parallel mmaped/file bits.
type Kind int

const (
	// Heap frames own a private byte slice.
	Heap Kind = iota
	// Mapped frames reference a memory-mapped region, either installed by
	// Storage.Add from a file-backed input frame, or supplied directly by
	// a caller as a read-only frame.
	Mapped
	// File frames reference a file descriptor directly, sent with
	// zero-copy sendfile semantics by the owning tcp.Socket.
	File
)

func (k Kind) String() string {
	switch k {
	case Heap:
		return "heap"
	case Mapped:
		return "mapped"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Flags govern admission and release behavior for a Frame.
type Flags uint8

const (
	// ReadOnly means Storage never copies or maps the payload on
	// admission; it is queued by value. Release still follows Kind unless
	// DontFree is set: a Heap payload is left to the caller, a Mapped
	// region is unmapped, and a File descriptor is closed.
	ReadOnly Flags = 1 << iota
	// DontFree suppresses release entirely, for every Kind.
	DontFree
	// FreeOnErr requests that Storage.Add release the frame's payload if
	// admission fails partway through (e.g. allocation failure).
	FreeOnErr
)

// Frame is one entry in a Storage queue. Data holds the full backing
// buffer for Heap and Mapped frames; Offset and Length index into it
// (valid unsent bytes are Data[Offset:Length]). File frames carry no Data;
// Offset and Length instead describe a byte range within the file.
type Frame struct {
	Kind   Kind
	Data   []byte
	FD     int
	Offset int
	Length int
	Flags  Flags
}

// exhausted reports whether every byte of the frame has been consumed.
func (f *Frame) exhausted() bool {
	return f.Offset == f.Length
}

// remaining returns the number of unconsumed bytes in the frame.
func (f *Frame) remaining() int {
	return f.Length - f.Offset
}
