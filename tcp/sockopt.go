package tcp

import "golang.org/x/sys/unix"

func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// socketError reads and clears SO_ERROR, returning nil when there is no
// pending error.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno == 0 {
		return nil
	}
	return unix.Errno(errno)
}

func newStreamSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := setNonblock(fd); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// retryable classifies an error from a kernel call wrapper as one this
// module's bounded retry handler should retry a fixed number of times.
func retryable(err error) bool {
	return err == unix.EPIPE || err == unix.ECONNRESET
}
