package tcp

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/supahero1/shnet-go/eventloop"
	"github.com/supahero1/shnet-go/internal/xlog"
)

// AcceptFunc is invoked once per accepted connection. Returning accept
// == false rejects the connection; the accepted descriptor is then
// closed and no Socket is constructed.
type AcceptFunc func(fd int, addr unix.Sockaddr) (handler Handler, accept bool)

// Server is a listening TCP socket registered with an eventloop.Loop.
type Server struct {
	mu     sync.Mutex
	fd     int
	loop   *eventloop.Loop
	accept AcceptFunc
	cfg    socketConfig
	logger xlog.Logger
	closed bool
}

// Listen binds and listens on addr, registering the resulting socket
// with loop for edge-triggered readability.
func Listen(loop *eventloop.Loop, addr unix.Sockaddr, accept AcceptFunc, opts ...Option) (*Server, error) {
	cfg := newServerConfig(opts...)

	fd, err := newStreamSocket(familyOf(addr))
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, cfg.backlog); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	srv := &Server{
		fd:     fd,
		loop:   loop,
		accept: accept,
		logger: cfg.logger,
	}

	if err := loop.Register(srv, eventloop.Readable|eventloop.EdgeTriggered); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return srv, nil
}

// FD implements eventloop.Entity.
func (srv *Server) FD() int { return srv.fd }

// Dispatch implements eventloop.Entity: repeatedly accept until the
// kernel reports would-block.
func (srv *Server) Dispatch(r eventloop.Ready) {
	if !r.Readable {
		return
	}

	for {
		cfd, sa, err := unix.Accept(srv.fd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			xlog.Errorf(srv.logger, "tcp", "accept failed", err, nil)
			return
		}

		if err := setNonblock(cfd); err != nil {
			_ = unix.Close(cfd)
			continue
		}

		handler, ok := srv.accept(cfd, sa)
		if !ok {
			_ = unix.Close(cfd)
			continue
		}

		sock := newSocket(cfd, srv.loop, handler, srv.cfg)
		if err := srv.loop.Register(sock, eventloop.Readable|eventloop.Writable|eventloop.EdgeTriggered); err != nil {
			_ = unix.Close(cfd)
			continue
		}

		sock.mu.Lock()
		sock.state = stateOpened
		sock.writable = true
		sock.emitLocked(Event{Kind: EventOpen})
		sock.mu.Unlock()
	}
}

// LocalPort returns the port the server is bound to, for sockets bound
// to an IPv4 or IPv6 address.
func (srv *Server) LocalPort() (int, error) {
	sa, err := unix.Getsockname(srv.fd)
	if err != nil {
		return 0, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port, nil
	case *unix.SockaddrInet6:
		return a.Port, nil
	default:
		return 0, nil
	}
}

// Close stops accepting and releases the listening descriptor.
func (srv *Server) Close() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.closed {
		return nil
	}
	srv.closed = true
	_ = srv.loop.Unregister(srv)
	return unix.Close(srv.fd)
}
