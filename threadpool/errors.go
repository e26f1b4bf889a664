package threadpool

import "errors"

// ErrClosed is returned by Submit after the pool has been closed.
var ErrClosed = errors.New("threadpool: pool is closed")
