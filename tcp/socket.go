package tcp

import (
	"crypto/tls"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/supahero1/shnet-go/dataframe"
	"github.com/supahero1/shnet-go/eventloop"
	"github.com/supahero1/shnet-go/internal/xlog"
)

const connectRetryBudget = 3

// Socket is a client or server-accepted TCP connection registered with an
// eventloop.Loop. Its Dispatch method is invoked by that loop's
// dispatcher goroutine, which serializes every state transition; Send,
// Read, Close, and ForceClose may be called from any goroutine and take
// the socket's own lock. The handler passed to Dial/Listen may also call
// any of those methods reentrantly from within its own callback (e.g.
// Send in response to EventOpen, or ForceClose/reconnect in response to
// EventClose) — the lock is released around every handler invocation for
// exactly this reason.
type Socket struct {
	mu      sync.Mutex
	fd      int
	loop    *eventloop.Loop
	handler Handler
	storage *dataframe.Storage
	state   socketState
	flags   Flags
	logger  xlog.Logger

	// tlsConfig is a reserved integration point for a future TLS handshake
	// layered over this socket's fd. Nothing in this package reads it yet.
	tlsConfig *tls.Config

	writable   bool
	closeGuard bool
	lastErr    error
}

func newSocket(fd int, loop *eventloop.Loop, handler Handler, cfg socketConfig) *Socket {
	return &Socket{
		fd:        fd,
		loop:      loop,
		handler:   handler,
		storage:   dataframe.New(),
		flags:     cfg.flags,
		logger:    cfg.logger,
		tlsConfig: cfg.tlsConfig,
	}
}

// TLSConfig returns the *tls.Config attached via WithTLSConfig, or nil.
// It is provided as a hand-off point for a caller that wants to layer its
// own TLS handshake over this socket's connection; this package does not
// perform the handshake itself.
func (s *Socket) TLSConfig() *tls.Config {
	return s.tlsConfig
}

// FD implements eventloop.Entity.
func (s *Socket) FD() int { return s.fd }

// Dial iterates addrs, attempting a connection to each in turn. Errors
// classify as: success/interrupted/in-progress (register and succeed),
// pipe/reset (retry the same candidate up to three times before
// advancing), or anything else (advance immediately). An exhausted list
// returns ErrConnectFailed wrapping the last candidate's error.
func Dial(loop *eventloop.Loop, addrs []unix.Sockaddr, handler Handler, opts ...Option) (*Socket, error) {
	if len(addrs) == 0 {
		return nil, ErrNoCandidates
	}
	cfg := newSocketConfig(opts...)

	var lastErr error
	for _, addr := range addrs {
		fd, err := newStreamSocket(familyOf(addr))
		if err != nil {
			lastErr = err
			continue
		}

		ok := false
		for attempt := 0; attempt <= connectRetryBudget; attempt++ {
			err = unix.Connect(fd, addr)
			if err == nil || err == unix.EINTR || err == unix.EINPROGRESS {
				ok = true
				break
			}
			if !retryable(err) {
				break
			}
			lastErr = err
		}

		if !ok {
			lastErr = err
			_ = unix.Close(fd)
			continue
		}

		sock := newSocket(fd, loop, handler, cfg)
		if err := loop.Register(sock, eventloop.Readable|eventloop.Writable|eventloop.EdgeTriggered); err != nil {
			_ = unix.Close(fd)
			lastErr = err
			continue
		}
		sock.mu.Lock()
		sock.state = stateConnecting
		sock.mu.Unlock()
		return sock, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrConnectFailed, lastErr)
}

func familyOf(addr unix.Sockaddr) int {
	switch addr.(type) {
	case *unix.SockaddrInet4:
		return unix.AF_INET
	case *unix.SockaddrInet6:
		return unix.AF_INET6
	case *unix.SockaddrUnix:
		return unix.AF_UNIX
	default:
		return unix.AF_INET
	}
}

// Dispatch implements eventloop.Entity. At most one call is ever in
// flight for a given socket, serialized by the owning loop. emitLocked
// releases s.mu for the duration of each handler callback, so a handler
// is free to call Send/Close/ForceClose/Read reentrantly (the original
// implementation's tests rely on exactly this: closing a socket from its
// own close handler, reconnecting from its own free handler); every step
// below re-checks s.closeGuard after an emit in case the handler already
// drove the socket to CLOSING_FAST.
func (s *Socket) Dispatch(r eventloop.Ready) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Error {
		s.transitionCloseLocked(socketError(s.fd))
		return
	}

	if s.state == stateConnecting {
		if err := socketError(s.fd); err != nil {
			s.transitionCloseLocked(err)
			return
		}
		s.state = stateOpened
		s.writable = true
		s.emitLocked(Event{Kind: EventOpen})
		if s.closeGuard {
			return
		}
		s.flushLocked()
		if s.closeGuard {
			return
		}
		if r.Hangup {
			s.handlePeerHalfCloseLocked()
		}
		return
	}

	if r.Readable {
		s.emitLocked(Event{Kind: EventData})
		if s.closeGuard {
			return
		}
	}

	if r.Writable {
		wasBlocked := !s.writable
		s.writable = true
		s.flushLocked()
		if s.closeGuard {
			return
		}
		if wasBlocked && s.writable {
			s.emitLocked(Event{Kind: EventCanSend})
			if s.closeGuard {
				return
			}
		}
	}

	if r.Hangup {
		s.handlePeerHalfCloseLocked()
	}
}

func (s *Socket) handlePeerHalfCloseLocked() {
	if s.state != stateOpened {
		return
	}
	s.state = stateHalfClosed
	s.emitLocked(Event{Kind: EventReadClose})
	if s.closeGuard {
		return
	}
	if s.flags&DontCloseOnReadClose == 0 {
		s.closeLocked()
	}
}

// Send appends frame to the outgoing queue, attempting an immediate
// flush if the socket is currently writable.
func (s *Socket) Send(frame dataframe.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state >= stateClosing {
		return ErrClosed
	}
	if err := s.storage.Add(frame); err != nil {
		return err
	}
	if s.writable {
		s.flushLocked()
	}
	return nil
}

// Read pulls up to len(buf) bytes from the kernel. It returns (0, nil)
// on a non-blocking read that would block — callers drain in a loop
// after EventData until Read reports that condition.
func (s *Socket) Read(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.mu.Lock()
		s.handlePeerHalfCloseLocked()
		s.mu.Unlock()
	}
	return n, nil
}

// flushLocked drains the send queue while the socket is writable,
// using sendfile for file-backed frames and a no-signal write otherwise.
func (s *Socket) flushLocked() {
	for s.writable && !s.storage.IsEmpty() {
		frame, ok := s.storage.Head()
		if !ok {
			return
		}

		var n int
		var err error
		if frame.Kind == dataframe.File {
			off := int64(frame.Offset)
			n, err = unix.Sendfile(s.fd, frame.FD, &off, frame.Length-frame.Offset)
		} else {
			n, err = unix.Write(s.fd, frame.Data[frame.Offset:frame.Length])
		}

		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				s.writable = false
				return
			}
			if err == unix.EINTR {
				continue
			}
			s.transitionCloseLocked(err)
			return
		}

		if n > 0 {
			if drainErr := s.storage.Drain(n); drainErr != nil {
				xlog.Errorf(s.logger, "tcp", "storage drain failed", drainErr, nil)
				s.transitionCloseLocked(drainErr)
				return
			}
		}
	}

	if s.storage.IsEmpty() && s.state == stateClosing {
		_ = unix.Shutdown(s.fd, unix.SHUT_WR)
	}
}

// Close requests a graceful close: the write half shuts down once the
// send queue drains.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Socket) closeLocked() error {
	if s.state >= stateClosing {
		return nil
	}
	s.state = stateClosing
	if s.storage.IsEmpty() {
		_ = unix.Shutdown(s.fd, unix.SHUT_WR)
	}
	return nil
}

// ForceClose closes immediately, discarding any queued bytes.
func (s *Socket) ForceClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionCloseLocked(nil)
	return nil
}

// transitionCloseLocked drives the socket to CLOSING_FAST and emits the
// close/deinit/free event sequence exactly once, guarded by closeGuard
// against concurrent triggers (readable error + writable error in the
// same dispatch batch, for instance).
func (s *Socket) transitionCloseLocked(cause error) {
	if s.closeGuard {
		return
	}
	s.closeGuard = true
	s.state = stateClosingFast
	if cause != nil {
		s.lastErr = cause
	}

	if s.loop != nil {
		_ = s.loop.Unregister(s)
	}
	_ = unix.Close(s.fd)

	s.emitLocked(Event{Kind: EventClose, Err: s.lastErr})
	s.emitLocked(Event{Kind: EventDeinit})
	_ = s.storage.Close()
	s.state = stateFreed
	s.emitLocked(Event{Kind: EventFree})
}

// emitLocked invokes the socket's handler for e. It must be called with
// s.mu held: it releases the lock for the duration of the callback, so a
// handler may reentrantly call Send/Close/ForceClose/Read on this same
// socket without deadlocking against a non-reentrant mutex, then
// reacquires the lock before returning so the caller's critical section
// continues uninterrupted. Callers must re-validate any state they cached
// before the call (state, closeGuard) after it returns.
func (s *Socket) emitLocked(e Event) {
	if s.handler == nil {
		return
	}
	s.mu.Unlock()
	s.handler(s, e)
	s.mu.Lock()
}

// LastError returns the most recent system error observed at close time.
func (s *Socket) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
