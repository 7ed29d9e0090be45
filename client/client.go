// Package client drives a single TLS connection through resolution,
// handshake, request transmission, reception and teardown on top of a
// callback-driven network stack.
//
// All stack callbacks run from inside EventLoop.Step, which only the waits in
// this package call. The connection Context is therefore only ever touched
// from one goroutine, interleaved at those waits.
package client

import (
	"io"
	"log/slog"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Client holds the collaborators and settings for one fetch.
type Client struct {
	stack  ports.NetStack
	tls    ports.TLSProvider
	out    io.Writer
	logger *slog.Logger
	pool   *contextPool
	cfg    clientConfig
}

type clientConfig struct {
	hostname       string
	trustAnchor    []byte
	port           uint16
	resolvePoll    time.Duration
	connectPoll    time.Duration
	ackPoll        time.Duration
	responsePoll   time.Duration
	connectTimeout time.Duration
	ackTimeout     time.Duration
	idleShots      uint8
	contexts       int
}

func defaultClientConfig() clientConfig {
	def := entities.DefaultConfig()
	return clientConfig{
		hostname:     def.Hostname,
		port:         def.Port,
		resolvePoll:  def.Poll.Resolve,
		connectPoll:  def.Poll.Connect,
		ackPoll:      def.Poll.Ack,
		responsePoll: def.Poll.Response,
		idleShots:    def.Poll.IdleShots,
		contexts:     1,
	}
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithConfig applies the connection-related fields of a fetch config.
func WithConfig(cfg entities.Config) Option {
	return func(c *Client) {
		c.cfg.hostname = cfg.Hostname
		c.cfg.trustAnchor = cfg.TrustAnchor
		if cfg.Port != 0 {
			c.cfg.port = cfg.Port
		}
		if cfg.Poll.Resolve > 0 {
			c.cfg.resolvePoll = cfg.Poll.Resolve
		}
		if cfg.Poll.Connect > 0 {
			c.cfg.connectPoll = cfg.Poll.Connect
		}
		if cfg.Poll.Ack > 0 {
			c.cfg.ackPoll = cfg.Poll.Ack
		}
		if cfg.Poll.Response > 0 {
			c.cfg.responsePoll = cfg.Poll.Response
		}
		if cfg.Poll.IdleShots > 0 {
			c.cfg.idleShots = cfg.Poll.IdleShots
		}
		c.cfg.connectTimeout = cfg.ConnectTimeout
		c.cfg.ackTimeout = cfg.AckTimeout
	}
}

// WithHostname sets the name used for SNI.
func WithHostname(host string) Option {
	return func(c *Client) {
		c.cfg.hostname = host
	}
}

// WithTrustAnchor sets the CA certificate the server is verified against.
func WithTrustAnchor(cert []byte) Option {
	return func(c *Client) {
		c.cfg.trustAnchor = cert
	}
}

// WithPort overrides the HTTPS port.
func WithPort(port uint16) Option {
	return func(c *Client) {
		if port != 0 {
			c.cfg.port = port
		}
	}
}

// WithPollInterval sets every event loop step duration at once.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.cfg.resolvePoll = d
			c.cfg.connectPoll = d
			c.cfg.ackPoll = d
			c.cfg.responsePoll = d
		}
	}
}

// WithConnectTimeout bounds the handshake wait. Zero waits forever.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.cfg.connectTimeout = d
	}
}

// WithAckTimeout bounds the acknowledgment wait. Zero waits forever.
func WithAckTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.cfg.ackTimeout = d
	}
}

// WithOutput sets where received bytes are written.
func WithOutput(w io.Writer) Option {
	return func(c *Client) {
		if w != nil {
			c.out = w
		}
	}
}

// WithLogger sets the logger for callback and teardown activity.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextCapacity sets how many connection contexts may be live at once.
// Zero makes every allocation fail.
func WithContextCapacity(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.cfg.contexts = n
		}
	}
}

// New creates a Client on the given stack and TLS provider.
func New(stack ports.NetStack, tls ports.TLSProvider, opts ...Option) *Client {
	c := &Client{
		stack:  stack,
		tls:    tls,
		out:    io.Discard,
		logger: slog.Default(),
		cfg:    defaultClientConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pool = newContextPool(c.cfg.contexts)
	return c
}

// PoolStats reports connection context allocations so far.
func (c *Client) PoolStats() PoolStats {
	return c.pool.stats()
}
