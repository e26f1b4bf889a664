package tcp

import (
	"crypto/tls"

	"github.com/supahero1/shnet-go/internal/xlog"
)

// Option configures a Socket or Server at construction time.
type Option interface {
	applySocket(*socketConfig)
	applyServer(*serverConfig)
}

type socketConfig struct {
	flags     Flags
	logger    xlog.Logger
	tlsConfig *tls.Config
}

type serverConfig struct {
	logger  xlog.Logger
	backlog int
}

type optionFunc struct {
	socket func(*socketConfig)
	server func(*serverConfig)
}

func (f optionFunc) applySocket(c *socketConfig) {
	if f.socket != nil {
		f.socket(c)
	}
}

func (f optionFunc) applyServer(c *serverConfig) {
	if f.server != nil {
		f.server(c)
	}
}

// WithFlags sets per-socket behavior bits.
func WithFlags(flags Flags) Option {
	return optionFunc{socket: func(c *socketConfig) { c.flags = flags }}
}

// WithLogger overrides the structured logger used by a Socket or Server.
func WithLogger(l xlog.Logger) Option {
	return optionFunc{
		socket: func(c *socketConfig) {
			if l != nil {
				c.logger = l
			}
		},
		server: func(c *serverConfig) {
			if l != nil {
				c.logger = l
			}
		},
	}
}

// WithTLSConfig attaches a *tls.Config to a Socket for a future TLS
// integration point. It is stored and otherwise unused: Dial/Send/Read
// always operate on the raw fd. Handshake wiring is out of scope here.
func WithTLSConfig(cfg *tls.Config) Option {
	return optionFunc{socket: func(c *socketConfig) { c.tlsConfig = cfg }}
}

// WithBacklog sets a Server's listen backlog. Default is 128.
func WithBacklog(n int) Option {
	return optionFunc{server: func(c *serverConfig) {
		if n > 0 {
			c.backlog = n
		}
	}}
}

func newSocketConfig(opts ...Option) socketConfig {
	c := socketConfig{logger: xlog.Default()}
	for _, o := range opts {
		o.applySocket(&c)
	}
	return c
}

func newServerConfig(opts ...Option) serverConfig {
	c := serverConfig{logger: xlog.Default(), backlog: 128}
	for _, o := range opts {
		o.applyServer(&c)
	}
	return c
}
