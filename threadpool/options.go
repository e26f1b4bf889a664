package threadpool

import "github.com/supahero1/shnet-go/internal/xlog"

// Option configures a Pool at construction time.
type Option interface {
	applyPool(*config)
}

type config struct {
	logger xlog.Logger
}

type optionFunc func(*config)

func (f optionFunc) applyPool(c *config) { f(c) }

// WithLogger overrides the Pool's structured logger.
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
		o.applyPool(&c)
	}
	return c
}
