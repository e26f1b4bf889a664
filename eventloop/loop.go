package eventloop

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/supahero1/shnet-go/internal/xlog"
)

// Flags modify Shutdown's behavior.
type Flags uint32

const (
	// Synchronous blocks Shutdown until the dispatcher goroutine has
	// processed the shutdown command and exited.
	Synchronous Flags = 1 << iota
	// FreeResources closes the epoll instance and drops the entity
	// registry once the dispatcher exits. Without it, those stay in place,
	// but the wakeup fd is still closed and the Loop is still marked
	// closed: Start cannot run it again.
	FreeResources
	// FreeLoopObject additionally releases the Loop's own scratch buffers,
	// for callers that keep the *Loop value around only to inspect its
	// state after shutdown. Implies FreeResources.
	FreeLoopObject
)

// Loop is a single-threaded epoll dispatcher. The zero value is not usable;
// construct one with New.
type Loop struct {
	// mu guards structural changes to the entity registry (Register,
	// Modify, Unregister) and the scratch buffer. It does not guard the
	// kernel's epoll interest table, which is safe for concurrent
	// modification independent of any in-flight epoll_wait.
	mu       sync.Mutex
	poller   *poller
	wakeFD   int
	entities map[int]Entity
	scratch  []unix.EpollEvent

	shutdownCh chan Flags

	// tasksMu guards the external task queue submitted via Submit. Tasks
	// run on the dispatcher goroutine between readiness batches, never on
	// the submitting goroutine: this is the hook an asynchronous address
	// resolver (or any other off-loop producer) uses to post results back
	// without the resolver reentering loop-owned state directly.
	tasksMu    sync.Mutex
	tasks      []func()
	tasksSpare []func()

	state   fastState
	done    chan struct{}
	logger  xlog.Logger
	onPanic func(any)

	closeOnce sync.Once
	lastErr   error
}

// New creates a Loop with its own epoll instance and wakeup eventfd. The
// wakeup fd is always the first registration, with level-triggered
// Readable interest — it is never exposed through Register/Entity and
// never visible to user Dispatch calls.
func New(opts ...Option) (*Loop, error) {
	cfg := newLoopConfig(opts...)

	p, err := newPoller()
	if err != nil {
		return nil, err
	}

	wakeFD, err := createWakeFD()
	if err != nil {
		_ = p.close()
		return nil, err
	}

	l := &Loop{
		poller:     p,
		wakeFD:     wakeFD,
		entities:   make(map[int]Entity),
		scratch:    make([]unix.EpollEvent, cfg.scratch),
		shutdownCh: make(chan Flags, 1),
		tasksSpare: make([]func(), 0, cfg.scratch),
		done:       make(chan struct{}),
		logger:     cfg.logger,
		onPanic:    cfg.onPanic,
	}

	if err := p.add(wakeFD, Readable); err != nil {
		_ = closeWakeFD(wakeFD)
		_ = p.close()
		return nil, err
	}

	return l, nil
}

// Start spawns the dispatcher goroutine. It returns ErrAlreadyRunning if
// called more than once.
func (l *Loop) Start() error {
	if !l.state.transition(stateIdle, stateRunning) {
		return ErrAlreadyRunning
	}
	go l.dispatch()
	return nil
}

// Register adds entity to the loop with the given interest. The loop must
// be running.
func (l *Loop) Register(e Entity, interest Interest) error {
	switch l.state.load() {
	case stateRunning:
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotRunning
	}
	fd := e.FD()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entities[fd]; ok {
		return ErrFDRegistered
	}
	if err := l.poller.add(fd, interest); err != nil {
		return err
	}
	l.entities[fd] = e
	return nil
}

// Modify changes the interest set for an already-registered entity.
func (l *Loop) Modify(e Entity, interest Interest) error {
	fd := e.FD()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entities[fd]; !ok {
		return ErrFDNotRegistered
	}
	return l.poller.modify(fd, interest)
}

// Unregister removes an entity from the loop. It is safe to call from
// within the entity's own Dispatch.
func (l *Loop) Unregister(e Entity) error {
	fd := e.FD()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entities[fd]; !ok {
		return ErrFDNotRegistered
	}
	delete(l.entities, fd)
	return l.poller.remove(fd)
}

// Shutdown requests that the dispatcher goroutine stop. The command is
// carried on a dedicated channel rather than packed into the wakeup
// counter itself; the dispatcher reads it once every entity ready in the
// same batch as the wakeup has been dispatched and queued tasks have run.
// If flags includes Synchronous, Shutdown blocks
// until the dispatcher has fully exited.
func (l *Loop) Shutdown(flags Flags) error {
	if !l.state.transition(stateRunning, stateShuttingDown) {
		if l.state.load() == stateClosed {
			return nil
		}
		return ErrNotRunning
	}

	l.shutdownCh <- flags
	if err := ringWakeFD(l.wakeFD); err != nil {
		return err
	}

	if flags&Synchronous != 0 {
		<-l.done
	}
	return nil
}

// Done returns a channel closed once the dispatcher goroutine has fully
// exited following Shutdown.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit queues task to run on the dispatcher goroutine and wakes the loop.
// It is safe to call from any goroutine, including another Loop's
// dispatcher. task must not block; long-running work belongs on a
// threadpool.Pool or threadgroup.Group, posting its result back through a
// second Submit call.
func (l *Loop) Submit(task func()) error {
	switch l.state.load() {
	case stateRunning:
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotRunning
	}

	l.tasksMu.Lock()
	l.tasks = append(l.tasks, task)
	l.tasksMu.Unlock()

	return ringWakeFD(l.wakeFD)
}

// drainTasks swaps the task queue under lock, then runs the swapped-out
// batch without holding tasksMu, so a Submit from inside a running task
// cannot deadlock against its own drain.
func (l *Loop) drainTasks() {
	l.tasksMu.Lock()
	batch := l.tasks
	l.tasks = l.tasksSpare[:0]
	l.tasksSpare = batch
	l.tasksMu.Unlock()

	for _, t := range batch {
		l.safeRun(t)
	}
}

// safeRun invokes a submitted task with the same panic containment as
// safeDispatch.
func (l *Loop) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.onPanic != nil {
				l.onPanic(r)
				return
			}
			xlog.Errorf(l.logger, "eventloop", "submitted task panicked", nil, xlog.Fields{
				"recovered": r,
			})
		}
	}()
	task()
}

// dispatch is the loop's single dispatcher goroutine.
func (l *Loop) dispatch() {
	defer close(l.done)

	var flags Flags
	for {
		events, err := l.poller.wait(l.scratch, -1)
		if err != nil {
			xlog.Errorf(l.logger, "eventloop", "epoll_wait failed", err, nil)
			l.mu.Lock()
			l.lastErr = err
			l.mu.Unlock()
			break
		}

		wake := false
		for _, ev := range events {
			fd := int(ev.Fd)
			if fd == l.wakeFD {
				wake = true
				continue
			}

			l.mu.Lock()
			entity, ok := l.entities[fd]
			l.mu.Unlock()
			if !ok {
				continue
			}

			l.safeDispatch(entity, epollToReady(ev.Events))
		}

		if wake {
			if err := drainWakeFD(l.wakeFD); err != nil {
				xlog.Errorf(l.logger, "eventloop", "drain wakeup fd failed", err, nil)
			}
			l.drainTasks()
			select {
			case flags = <-l.shutdownCh:
				l.finishShutdown(flags)
				return
			default:
			}
		}
	}
}

// safeDispatch invokes an entity's Dispatch with panic recovery, so one
// misbehaving entity cannot bring down the whole loop.
func (l *Loop) safeDispatch(e Entity, ready Ready) {
	defer func() {
		if r := recover(); r != nil {
			if l.onPanic != nil {
				l.onPanic(r)
				return
			}
			xlog.Errorf(l.logger, "eventloop", "entity dispatch panicked", nil, xlog.Fields{
				"recovered": r,
			})
		}
	}()
	e.Dispatch(ready)
}

// finishShutdown tears down loop resources per flags, acting after the
// dispatcher's last Dispatch call has already returned.
func (l *Loop) finishShutdown(flags Flags) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.poller.remove(l.wakeFD)
	_ = closeWakeFD(l.wakeFD)

	if flags&(FreeResources|FreeLoopObject) != 0 {
		_ = l.poller.close()
		l.entities = nil
	}
	if flags&FreeLoopObject != 0 {
		l.scratch = nil
	}

	l.state.store(stateClosed)
}

// Close is equivalent to Shutdown(Synchronous|FreeResources|FreeLoopObject)
// if the loop is running, or a no-op if it has already stopped.
func (l *Loop) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.Shutdown(Synchronous | FreeResources | FreeLoopObject)
	})
	return err
}

// LastError returns the most recent system error observed by the
// dispatcher goroutine, or nil. It is meant to be surfaced alongside a
// tcp.Socket's close event, mirroring how system-level errors are
// delivered through dispatch rather than returned from an async call.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
