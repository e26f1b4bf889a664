package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/supahero1/shnet-go/internal/xlog"
)

// Immediately is a near-zero delay meaning "fire at the worker's next
// wake". The service gives it no special treatment: it is added like any
// other delay, and a zero or negative After is likewise already due.
const Immediately = 2 * time.Nanosecond

// TimeoutSpec describes a one-shot timer.
type TimeoutSpec struct {
	After time.Duration
	Func  func()
}

// IntervalSpec describes a periodic timer. Count == 0 repeats forever.
type IntervalSpec struct {
	After    time.Duration
	Interval time.Duration
	Count    int
	Func     func()
}

// Service is a single-worker timer service backed by two binary min-heaps
// (timeouts, intervals), each keyed by absolute due-time.
type Service struct {
	mu        sync.Mutex
	timeouts  timeoutHeap
	intervals intervalHeap

	amount chan struct{} // level-signal: heaps are non-empty
	work   chan struct{} // edge-signal: a timer was just added

	stopCh chan struct{}
	done   chan struct{}

	started bool
	stopped bool

	logger xlog.Logger
}

// New constructs an idle Service. Call Start to spawn its worker.
func New(opts ...Option) *Service {
	cfg := newConfig(opts...)
	return &Service{
		amount: make(chan struct{}, 1),
		work:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		logger: cfg.logger,
	}
}

// Start spawns the worker goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
	return nil
}

// Stop requests the worker to exit. If sync is true, Stop blocks until
// the worker has fully exited; pending timers are discarded either way.
func (s *Service) Stop(sync bool) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	if sync {
		<-s.done
	}
	return nil
}

// AddTimeout schedules a one-shot timer and returns its cancellation
// handle.
func (s *Service) AddTimeout(spec TimeoutSpec) (*Handle, error) {
	h := newHandle(timeoutKind)

	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil, ErrNotRunning
	}
	heap.Push(&s.timeouts, &timeoutSlot{
		due:    time.Now().Add(spec.After),
		cb:     spec.Func,
		handle: h,
	})
	s.mu.Unlock()

	s.signalAdded()
	return h, nil
}

// CancelTimeout removes a live one-shot timer in O(1).
func (s *Service) CancelTimeout(h *Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !h.Live() || h.kind != timeoutKind {
		return ErrHandleStale
	}
	heap.Remove(&s.timeouts, h.index)
	return nil
}

// ModifyTimeout resets the live timeout's due-time to now+after under the
// service lock, then re-heapifies from its slot. This is
// the Go equivalent of the open/close-scoped mutation pattern: the
// mutation happens while the lock is held, and the heap invariant is
// restored before the lock is released.
func (s *Service) ModifyTimeout(h *Handle, after time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !h.Live() || h.kind != timeoutKind {
		return ErrHandleStale
	}
	s.timeouts[h.index].due = time.Now().Add(after)
	heap.Fix(&s.timeouts, h.index)
	return nil
}

// AddInterval schedules a periodic timer and returns its cancellation
// handle.
func (s *Service) AddInterval(spec IntervalSpec) (*Handle, error) {
	h := newHandle(intervalKind)

	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil, ErrNotRunning
	}
	heap.Push(&s.intervals, &intervalSlot{
		base:      time.Now().Add(spec.After - spec.Interval),
		interval:  spec.Interval,
		remaining: spec.Count,
		cb:        spec.Func,
		handle:    h,
	})
	s.mu.Unlock()

	s.signalAdded()
	return h, nil
}

// CancelInterval removes a live periodic timer in O(1).
func (s *Service) CancelInterval(h *Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !h.Live() || h.kind != intervalKind {
		return ErrHandleStale
	}
	heap.Remove(&s.intervals, h.index)
	return nil
}

func (s *Service) signalAdded() {
	select {
	case s.amount <- struct{}{}:
	default:
	}
	select {
	case s.work <- struct{}{}:
	default:
	}
}

// run is the service's single worker goroutine.
func (s *Service) run() {
	defer close(s.done)

	for {
		if s.waitNonEmpty() {
			return
		}

		due, ok := s.nextDue()
		if !ok {
			continue
		}

		if wait := time.Until(due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-s.work:
				t.Stop()
				continue
			case <-s.stopCh:
				t.Stop()
				return
			}
		}

		s.fireDue()
	}
}

// waitNonEmpty blocks until the heaps hold at least one timer, or the
// service is stopped (returning true in that case).
func (s *Service) waitNonEmpty() bool {
	s.mu.Lock()
	nonEmpty := s.timeouts.Len() > 0 || s.intervals.Len() > 0
	s.mu.Unlock()
	if nonEmpty {
		return false
	}

	select {
	case <-s.amount:
		return false
	case <-s.stopCh:
		return true
	}
}

func (s *Service) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		haveTimeout  = s.timeouts.Len() > 0
		haveInterval = s.intervals.Len() > 0
	)
	switch {
	case haveTimeout && haveInterval:
		td, id := s.timeouts[0].due, s.intervals[0].due()
		if !id.Before(td) {
			return td, true
		}
		return id, true
	case haveTimeout:
		return s.timeouts[0].due, true
	case haveInterval:
		return s.intervals[0].due(), true
	default:
		return time.Time{}, false
	}
}

// fireDue pops whichever heap's root is due — ties and the "both due now"
// case favor the timeouts heap — invokes its callback, and reinserts
// interval timers with a decremented remaining count.
func (s *Service) fireDue() {
	s.mu.Lock()
	var (
		cb          func()
		wasInterval bool
		slot        *intervalSlot
	)

	now := time.Now()
	haveTimeout := s.timeouts.Len() > 0 && !s.timeouts[0].due.After(now)
	haveInterval := s.intervals.Len() > 0 && !s.intervals[0].due().After(now)

	switch {
	case haveTimeout:
		t := heap.Pop(&s.timeouts).(*timeoutSlot)
		cb = t.cb
	case haveInterval:
		slot = heap.Pop(&s.intervals).(*intervalSlot)
		cb = slot.cb
		wasInterval = true
	}
	s.mu.Unlock()

	if cb == nil {
		return
	}

	cb()

	if wasInterval {
		infinite := slot.remaining == 0
		slot.base = slot.base.Add(slot.interval)
		if !infinite {
			slot.remaining--
		}
		if infinite || slot.remaining > 0 {
			s.mu.Lock()
			heap.Push(&s.intervals, slot)
			s.mu.Unlock()
		}
	}
}
