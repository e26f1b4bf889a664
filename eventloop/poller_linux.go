package eventloop

import (
	"golang.org/x/sys/unix"
)

// poller wraps a single epoll instance. The Loop calls add, modify and
// remove under its registration mutex; the dispatcher goroutine calls wait
// without that mutex, which epoll allows alongside concurrent epoll_ctl.
type poller struct {
	epfd int
}

func newPoller() (*poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: fd}, nil
}

func eventsToEpoll(i Interest) uint32 {
	var e uint32
	if i&Readable != 0 {
		e |= unix.EPOLLIN
	}
	if i&Writable != 0 {
		e |= unix.EPOLLOUT
	}
	if i&EdgeTriggered != 0 {
		e |= unix.EPOLLET
	}
	return e
}

func epollToReady(e uint32) Ready {
	return Ready{
		Readable: e&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
		Writable: e&unix.EPOLLOUT != 0,
		Error:    e&unix.EPOLLERR != 0,
		Hangup:   e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
	}
}

func (p *poller) add(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *poller) modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *poller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks until at least one fd is ready, an EINTR-free timeout elapses
// (msec < 0 blocks indefinitely), or an error other than EINTR occurs. It
// retries on EINTR transparently, matching the safe-execute retry pattern
// used throughout this module for interruptible syscalls.
func (p *poller) wait(scratch []unix.EpollEvent, msec int) ([]unix.EpollEvent, error) {
	for {
		n, err := unix.EpollWait(p.epfd, scratch, msec)
		if err == nil {
			return scratch[:n], nil
		}
		if err == unix.EINTR {
			continue
		}
		return nil, err
	}
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}
