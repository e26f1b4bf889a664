package udp

import "github.com/supahero1/shnet-go/internal/xlog"

// Option configures an Endpoint at construction time.
type Option interface {
	apply(*config)
}

type config struct {
	udpLite bool
	logger  xlog.Logger
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithUDPLite selects the UDP-Lite protocol instead of plain UDP.
func WithUDPLite() Option {
	return optionFunc(func(c *config) { c.udpLite = true })
}

// WithLogger overrides the Endpoint's structured logger.
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
		o.apply(&c)
	}
	return c
}
