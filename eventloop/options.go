package eventloop

import "github.com/supahero1/shnet-go/internal/xlog"

// Option configures a Loop at construction time.
type Option interface {
	applyLoop(*loopConfig)
}

type loopConfig struct {
	scratch int
	logger  xlog.Logger
	onPanic func(any)
}

type loopOptionFunc func(*loopConfig)

func (f loopOptionFunc) applyLoop(c *loopConfig) { f(c) }

// WithScratchCapacity sets the size of the epoll_wait event buffer. The
// default is 64.
func WithScratchCapacity(n int) Option {
	return loopOptionFunc(func(c *loopConfig) {
		if n > 0 {
			c.scratch = n
		}
	})
}

// WithLogger overrides the Loop's structured logger. The default is
// xlog.Default().
func WithLogger(l xlog.Logger) Option {
	return loopOptionFunc(func(c *loopConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithPanicHandler installs a callback invoked whenever an Entity's
// Dispatch panics. If unset, the panic is logged at Error level and the
// dispatcher goroutine continues serving other entities.
func WithPanicHandler(f func(any)) Option {
	return loopOptionFunc(func(c *loopConfig) {
		c.onPanic = f
	})
}

func newLoopConfig(opts ...Option) loopConfig {
	c := loopConfig{
		scratch: 64,
		logger:  xlog.Default(),
	}
	for _, o := range opts {
		o.applyLoop(&c)
	}
	return c
}
