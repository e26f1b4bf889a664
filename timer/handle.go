package timer

type timerKind int

const (
	timeoutKind timerKind = iota
	intervalKind
)

// Handle is an externally-owned reference to a live timer slot. The
// service writes the timer's current slot index into it on every heap
// swap, so Cancel is O(1): no search is required to locate the slot. A
// Handle is valid exactly while its timer occupies a slot; after firing
// (a one-shot timeout, or an interval whose remaining count reaches
// zero) or after Cancel, the index is reset and the Handle is stale.
type Handle struct {
	kind  timerKind
	index int // -1 when not occupying a slot
}

func newHandle(kind timerKind) *Handle {
	return &Handle{kind: kind, index: -1}
}

// Live reports whether the handle currently names a slot.
func (h *Handle) Live() bool {
	return h.index >= 0
}
