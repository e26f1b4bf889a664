package eventloop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// pipeEntity wraps one end of a pipe so it can be registered with a Loop.
type pipeEntity struct {
	fd    int
	hits  atomic.Int32
	ready chan Ready
}

func (p *pipeEntity) FD() int { return p.fd }

func (p *pipeEntity) Dispatch(r Ready) {
	p.hits.Add(1)
	select {
	case p.ready <- r:
	default:
	}
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_NONBLOCK))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestLoopStartStopSync(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	require.ErrorIs(t, l.Start(), ErrAlreadyRunning)

	require.NoError(t, l.Shutdown(Synchronous|FreeResources|FreeLoopObject))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop within timeout")
	}
}

func TestLoopWakeupDelivery(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	rfd, wfd := newPipe(t)
	entity := &pipeEntity{fd: rfd, ready: make(chan Ready, 1)}
	require.NoError(t, l.Register(entity, Readable|EdgeTriggered))

	_, err = unix.Write(wfd, []byte("x"))
	require.NoError(t, err)

	select {
	case r := <-entity.ready:
		require.True(t, r.Readable)
	case <-time.After(time.Second):
		t.Fatal("entity was not dispatched within timeout")
	}
}

func TestLoopRegisterDuplicateFD(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	rfd, _ := newPipe(t)
	entity := &pipeEntity{fd: rfd, ready: make(chan Ready, 1)}
	require.NoError(t, l.Register(entity, Readable|EdgeTriggered))
	require.ErrorIs(t, l.Register(entity, Readable|EdgeTriggered), ErrFDRegistered)
}

func TestLoopUnregisterUnknownFD(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	rfd, _ := newPipe(t)
	entity := &pipeEntity{fd: rfd, ready: make(chan Ready, 1)}
	require.ErrorIs(t, l.Unregister(entity), ErrFDNotRegistered)
}

func TestLoopSubmitRunsOnDispatcher(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	done := make(chan struct{})
	require.NoError(t, l.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submitted task never ran")
	}
}

func TestLoopSubmitAfterShutdownErrors(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	require.NoError(t, l.Shutdown(Synchronous|FreeResources|FreeLoopObject))

	require.ErrorIs(t, l.Submit(func() {}), ErrClosed)
}

func TestLoopRegisterAfterShutdownErrors(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	require.NoError(t, l.Shutdown(Synchronous|FreeResources|FreeLoopObject))

	rfd, _ := newPipe(t)
	entity := &pipeEntity{fd: rfd, ready: make(chan Ready, 1)}
	require.ErrorIs(t, l.Register(entity, Readable|EdgeTriggered), ErrClosed)
}

func TestLoopSubmitFromWithinTask(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	done := make(chan struct{})
	require.NoError(t, l.Submit(func() {
		require.NoError(t, l.Submit(func() { close(done) }))
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested submit never ran")
	}
}
