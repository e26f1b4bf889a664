package timer

import "github.com/supahero1/shnet-go/internal/xlog"

// Option configures a Service at construction time.
type Option interface {
	applyTimer(*config)
}

type config struct {
	logger xlog.Logger
}

type optionFunc func(*config)

func (f optionFunc) applyTimer(c *config) { f(c) }

// WithLogger overrides the Service's structured logger.
func WithLogger(l xlog.Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

func newConfig(opts ...Option) config {
	c := config{logger: xlog.Default()}
	for _, o := range opts {
		o.applyTimer(&c)
	}
	return c
}
