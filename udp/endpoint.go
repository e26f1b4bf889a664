package udp

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/supahero1/shnet-go/eventloop"
	"github.com/supahero1/shnet-go/internal/xlog"
)

const bindRetryBudget = 3

// Kind distinguishes a connected client endpoint from a bound server
// endpoint.
type Kind int

const (
	KindClient Kind = iota
	KindServer
)

// Handler receives readiness notifications for an Endpoint.
type Handler func(*Endpoint, eventloop.Ready)

// Endpoint is a UDP (or UDP-Lite) socket registered with an
// eventloop.Loop.
type Endpoint struct {
	mu      sync.Mutex
	fd      int
	loop    *eventloop.Loop
	kind    Kind
	udpLite bool
	handler Handler
	logger  xlog.Logger
	closed  bool
}

func protocol(udpLite bool) int {
	if udpLite {
		return unix.IPPROTO_UDPLITE
	}
	return unix.IPPROTO_UDP
}

func newDgramSocket(family int, udpLite bool) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM, protocol(udpLite))
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
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

func retryable(err error) bool {
	return err == unix.EPIPE || err == unix.ECONNRESET
}

// Client creates a connected UDP socket: addrs is iterated exactly like
// a TCP connect (pipe/reset within the retry budget retries the same
// candidate before advancing), registering with loop on first success.
func Client(loop *eventloop.Loop, addrs []unix.Sockaddr, handler Handler, opts ...Option) (*Endpoint, error) {
	return dial(loop, addrs, KindClient, handler, opts...)
}

// Server creates a UDP socket bound to the first workable candidate in
// addrs, registered with loop. Per-datagram replies use SendTo with the
// address recovered from Read, since a bound-but-unconnected socket has
// no single default peer.
func Server(loop *eventloop.Loop, addrs []unix.Sockaddr, handler Handler, opts ...Option) (*Endpoint, error) {
	return dial(loop, addrs, KindServer, handler, opts...)
}

func dial(loop *eventloop.Loop, addrs []unix.Sockaddr, kind Kind, handler Handler, opts ...Option) (*Endpoint, error) {
	if len(addrs) == 0 {
		return nil, ErrNoCandidates
	}
	cfg := newConfig(opts...)

	var lastErr error
	for _, addr := range addrs {
		fd, err := newDgramSocket(familyOf(addr), cfg.udpLite)
		if err != nil {
			lastErr = err
			continue
		}

		ok := false
		for attempt := 0; attempt <= bindRetryBudget; attempt++ {
			if kind == KindServer {
				err = unix.Bind(fd, addr)
			} else {
				err = unix.Connect(fd, addr)
			}
			if err == nil {
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

		ep := &Endpoint{
			fd:      fd,
			loop:    loop,
			kind:    kind,
			udpLite: cfg.udpLite,
			handler: handler,
			logger:  cfg.logger,
		}
		if err := loop.Register(ep, eventloop.Readable|eventloop.EdgeTriggered); err != nil {
			_ = unix.Close(fd)
			lastErr = err
			continue
		}
		return ep, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrBindFailed, lastErr)
}

// FD implements eventloop.Entity.
func (e *Endpoint) FD() int { return e.fd }

// Dispatch implements eventloop.Entity.
func (e *Endpoint) Dispatch(r eventloop.Ready) {
	if e.handler != nil {
		e.handler(e, r)
	}
}

// Send transmits the entire payload over a connected (Client) endpoint,
// looping past interruption until every byte is sent or a non-interrupt
// error occurs. UDP sends are atomic at the datagram layer, so a partial
// send here indicates an oversized datagram rather than a short write
// in the TCP sense; Send still advances and retries to mirror the
// no-signal retry-on-interrupt loop used throughout this module.
func (e *Endpoint) Send(buf []byte) (int, error) {
	if e.isClosed() {
		return 0, ErrClosed
	}

	total := 0
	for total < len(buf) {
		n, err := unix.Write(e.fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, err
		}
		total += n
	}
	return total, nil
}

// SendTo transmits buf to addr over a bound (Server) endpoint.
func (e *Endpoint) SendTo(buf []byte, addr unix.Sockaddr) error {
	if e.isClosed() {
		return ErrClosed
	}

	for {
		err := unix.Sendto(e.fd, buf, 0, addr)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Read performs one recvfrom, returning the number of bytes read and the
// sender's address.
func (e *Endpoint) Read(buf []byte) (int, unix.Sockaddr, error) {
	if e.isClosed() {
		return 0, nil, ErrClosed
	}

	n, from, err := unix.Recvfrom(e.fd, buf, 0)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil, nil
	}
	return n, from, err
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close unregisters and closes the endpoint.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.loop.Unregister(e)
	return unix.Close(e.fd)
}
