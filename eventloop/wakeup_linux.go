package eventloop

import "golang.org/x/sys/unix"

// createWakeFD creates a non-blocking eventfd used to interrupt epoll_wait
// from another goroutine.
func createWakeFD() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// ringWakeFD increments the eventfd counter by one, making it readable.
func ringWakeFD(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(fd, buf[:])
	if err == unix.EAGAIN {
		// counter is at its maximum; a wake is already pending.
		return nil
	}
	return err
}

// drainWakeFD reads and discards the eventfd counter, resetting it to zero.
func drainWakeFD(fd int) error {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err == nil {
			return nil
		}
		if err == unix.EAGAIN {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func closeWakeFD(fd int) error {
	return unix.Close(fd)
}
