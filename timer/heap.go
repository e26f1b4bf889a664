package timer

import "time"

// timeoutSlot is one one-shot timer. It implements container/heap.Interface
// element semantics via the timeoutHeap wrapper below.
type timeoutSlot struct {
	due    time.Time
	cb     func()
	handle *Handle
}

// intervalSlot is one periodic timer. remaining == 0 means fire forever.
type intervalSlot struct {
	base      time.Time
	interval  time.Duration
	remaining int
	cb        func()
	handle    *Handle
}

// timeoutHeap is a binary min-heap of *timeoutSlot keyed by due-time,
// satisfying container/heap.Interface. Every Swap/Push/Pop keeps the
// owning Handle's index field current, which is what makes Cancel O(1).
type timeoutHeap []*timeoutSlot

func (h timeoutHeap) Len() int { return len(h) }

func (h timeoutHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }

func (h timeoutHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].handle.index = i
	h[j].handle.index = j
}

func (h *timeoutHeap) Push(x any) {
	s := x.(*timeoutSlot)
	s.handle.index = len(*h)
	*h = append(*h, s)
}

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	s.handle.index = -1
	return s
}

// intervalHeap mirrors timeoutHeap for *intervalSlot.
type intervalHeap []*intervalSlot

func (h intervalHeap) Len() int { return len(h) }

func (h intervalHeap) Less(i, j int) bool { return h[i].due().Before(h[j].due()) }

func (h intervalHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].handle.index = i
	h[j].handle.index = j
}

func (h *intervalHeap) Push(x any) {
	s := x.(*intervalSlot)
	s.handle.index = len(*h)
	*h = append(*h, s)
}

func (h *intervalHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	s.handle.index = -1
	return s
}

func (s *intervalSlot) due() time.Time {
	return s.base.Add(s.interval)
}
