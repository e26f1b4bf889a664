package threadgroup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Entry is the function every worker spawned by a single Start call
// tails into. ctx is cancelled when the worker is individually
// cancelled, or when the group's parent context is cancelled.
type Entry func(ctx context.Context, arg any) error

type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Group tracks a dynamic set of worker goroutines spawned from possibly
// several Start calls against one shared errgroup.Group, supporting
// targeted cancellation of an arbitrary trailing subset.
type Group struct {
	mu      sync.Mutex
	workers []*worker
	eg      *errgroup.Group
}

// New constructs an empty Group bound to parent. The returned context is
// cancelled, and every worker with it, if any worker's Entry returns a
// non-nil error — mirroring errgroup's fail-fast semantics.
func New(parent context.Context) (*Group, context.Context) {
	eg, ctx := errgroup.WithContext(parent)
	return &Group{eg: eg}, ctx
}

// Start spawns n workers sharing entry and arg. It does not return until
// every spawned worker has observed the shared entry/arg locally — the
// Go equivalent of the semaphore+mutex+atomic-count rendezvous that
// ensures the shared start datum outlives every consumer but is never
// retained past Start: in Go this reduces to a sync.WaitGroup, since
// closures already own their captured entry/arg for as long as any
// worker goroutine is alive.
func (g *Group) Start(ctx context.Context, entry Entry, arg any, n int) {
	if n == 0 {
		return
	}

	var started sync.WaitGroup
	started.Add(n)

	fresh := make([]*worker, n)
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(ctx)
		w := &worker{cancel: cancel, done: make(chan struct{})}
		fresh[i] = w

		g.eg.Go(func() error {
			started.Done()
			defer close(w.done)
			err := entry(wctx, arg)
			w.err = err
			return err
		})
	}

	started.Wait()

	g.mu.Lock()
	g.push(fresh)
	g.mu.Unlock()
}

func (g *Group) push(fresh []*worker) {
	used := len(g.workers)
	needed := used + len(fresh)
	if needed > cap(g.workers) {
		newCap := (needed << 1) | 1
		tmp := make([]*worker, used, newCap)
		copy(tmp, g.workers)
		g.workers = tmp
	}
	g.workers = append(g.workers, fresh...)
}

func (g *Group) maybeShrinkLocked() {
	used := len(g.workers)
	c := cap(g.workers)
	if c > 0 && used < c/4 {
		newCap := used * 2
		tmp := make([]*worker, used, newCap)
		copy(tmp, g.workers)
		g.workers = tmp
	}
}

// takeTrailing removes and returns the trailing count workers.
func (g *Group) takeTrailing(count int) []*worker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count > len(g.workers) {
		count = len(g.workers)
	}
	split := len(g.workers) - count
	taken := g.workers[split:]
	g.workers = g.workers[:split:split]
	g.maybeShrinkLocked()
	return taken
}

// CancelSynchronous cancels the trailing count workers and blocks until
// every one of them has returned from its Entry call.
func (g *Group) CancelSynchronous(count int) {
	taken := g.takeTrailing(count)
	for _, w := range taken {
		w.cancel()
	}
	for _, w := range taken {
		<-w.done
	}
}

// CancelAsynchronous cancels the trailing count workers without waiting
// for them to return.
func (g *Group) CancelAsynchronous(count int) {
	taken := g.takeTrailing(count)
	for _, w := range taken {
		w.cancel()
	}
}

// Len returns the number of live workers tracked by the group.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.workers)
}

// ShutdownSynchronous cancels every worker and waits for all of them to
// return.
func (g *Group) ShutdownSynchronous() {
	g.CancelSynchronous(g.Len())
}

// ShutdownAsynchronous cancels every worker without waiting.
func (g *Group) ShutdownAsynchronous() {
	g.CancelAsynchronous(g.Len())
}

// Wait blocks until every worker ever spawned by this group has
// returned, and reports the first non-nil error among them, if any.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
