package threadpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/supahero1/shnet-go/internal/xlog"
)

// maxWeight bounds the counting semaphore far above any realistic queue
// depth; the pool never acquires more than one unit at a time, so the
// ceiling only needs to exceed the largest number of jobs ever
// outstanding simultaneously.
const maxWeight = 1 << 48

// Job is one unit of work: a function plus its opaque argument.
type Job struct {
	Func func(arg any)
	Arg  any
}

// Pool is a FIFO job queue consumed by worker goroutines. A job submitted
// by one goroutine is always seen by workers before a later submission
// from the same goroutine (FIFO within a single submitter); there is no
// ordering guarantee between distinct submitters beyond the order their
// Submit calls acquire the queue lock.
type Pool struct {
	mu     sync.Mutex
	queue  []Job
	sem    *semaphore.Weighted
	closed bool
	logger xlog.Logger
}

// New constructs an empty Pool.
func New(opts ...Option) *Pool {
	cfg := newConfig(opts...)
	// Hold every unit up front so no token is available until a Submit
	// releases one: the free count then equals the queue length.
	sem := semaphore.NewWeighted(maxWeight)
	sem.TryAcquire(maxWeight)
	return &Pool{
		sem:    sem,
		logger: cfg.logger,
	}
}

// Submit appends a job to the tail of the queue and releases one unit of
// the semaphore, waking a blocked worker.
func (p *Pool) Submit(fn func(arg any), arg any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.push(Job{Func: fn, Arg: arg})
	p.mu.Unlock()

	p.sem.Release(1)
	return nil
}

// Lock acquires the pool's internal mutex, for callers batching several
// SubmitLocked calls under one critical section.
func (p *Pool) Lock() { p.mu.Lock() }

// Unlock releases the mutex acquired by Lock.
func (p *Pool) Unlock() { p.mu.Unlock() }

// SubmitLocked is Submit for a caller already holding the pool's mutex via
// Lock. It still releases the semaphore itself, since the semaphore is
// independent of the queue mutex.
func (p *Pool) SubmitLocked(fn func(arg any), arg any) error {
	if p.closed {
		return ErrClosed
	}
	p.push(Job{Func: fn, Arg: arg})
	p.sem.Release(1)
	return nil
}

func (p *Pool) push(j Job) {
	used := len(p.queue)
	if used == cap(p.queue) {
		newCap := (cap(p.queue) << 1) | 1
		tmp := make([]Job, used, newCap)
		copy(tmp, p.queue)
		p.queue = tmp
	}
	p.queue = append(p.queue, j)
}

func (p *Pool) popLocked() (Job, bool) {
	if len(p.queue) == 0 {
		return Job{}, false
	}
	j := p.queue[0]
	copy(p.queue, p.queue[1:])
	p.queue = p.queue[:len(p.queue)-1]

	used := len(p.queue)
	c := cap(p.queue)
	if c > 0 && used < c/4 {
		newCap := used * 2
		tmp := make([]Job, used, newCap)
		copy(tmp, p.queue)
		p.queue = tmp
	}
	return j, true
}

// Work blocks until the semaphore admits a token (i.e. a job is queued)
// or ctx is cancelled, then runs exactly one job outside the queue lock.
// It is meant to be called in a loop by worker goroutines.
func (p *Pool) Work(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.mu.Lock()
	j, ok := p.popLocked()
	p.mu.Unlock()
	if !ok {
		// semaphore accounting and queue length diverged; nothing to do.
		return nil
	}

	p.run(j)
	return nil
}

// TryWork pops and runs one job without blocking, returning false if the
// queue was empty.
func (p *Pool) TryWork() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}

	p.mu.Lock()
	j, ok := p.popLocked()
	p.mu.Unlock()
	if !ok {
		return false
	}

	p.run(j)
	return true
}

func (p *Pool) run(j Job) {
	defer func() {
		if r := recover(); r != nil {
			xlog.Errorf(p.logger, "threadpool", "job panicked", nil, xlog.Fields{
				"recovered": r,
			})
		}
	}()
	j.Func(j.Arg)
}

// Start spawns n worker goroutines, each looping Work(ctx) until ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go func() {
			for {
				if err := p.Work(ctx); err != nil {
					return
				}
			}
		}()
	}
}

// Close marks the pool closed; further Submit calls fail with ErrClosed.
// Already-queued jobs remain available to Work/TryWork.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Len returns the number of jobs currently queued.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
