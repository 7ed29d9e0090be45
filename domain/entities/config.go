package entities

import (
	"time"
)

// CoarseShot is the period of the stack's coarse timer. Idle polling is
// configured in whole shots.
const CoarseShot = 500 * time.Millisecond

// HTTPSPort is the port every connection targets unless overridden.
const HTTPSPort uint16 = 443

// Config holds everything a single fetch needs. The defaults mirror the
// constants a firmware build would compile in; a YAML file may override them.
type Config struct {
	// Headers are extra request headers sent after Host.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Hostname is the server to resolve, connect to, and name in SNI and Host.
	Hostname string `yaml:"hostname" json:"hostname" validate:"required,max=255"`

	// Path is the request target.
	Path string `yaml:"path" json:"path" validate:"required,startswith=/"`

	// TrustAnchorFile is a PEM or DER CA certificate used to verify the server.
	TrustAnchorFile string `yaml:"trust_anchor_file,omitempty" json:"trust_anchor_file,omitempty"`

	// LogLevel is the progress log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// TrustAnchor holds the certificate bytes loaded from TrustAnchorFile.
	TrustAnchor []byte `yaml:"-" json:"-" validate:"required,min=1"`

	Network NetworkConfig `yaml:"network" json:"network"`
	Poll    PollConfig    `yaml:"poll" json:"poll"`

	// ConnectTimeout bounds the wait for the handshake. Zero waits forever.
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" validate:"gte=0"`

	// AckTimeout bounds the wait for the request to be acknowledged. Zero waits forever.
	AckTimeout time.Duration `yaml:"ack_timeout" json:"ack_timeout" validate:"gte=0"`

	// ResponseWait is how long the response is read before shutting down.
	ResponseWait time.Duration `yaml:"response_wait" json:"response_wait" validate:"gte=0"`

	// Port is the server port.
	Port uint16 `yaml:"port" json:"port" validate:"required"`
}

// NetworkConfig selects the link the request goes out on.
type NetworkConfig struct {
	// Interface is the name of the interface to wait for. Empty accepts any
	// non-loopback interface.
	Interface string `yaml:"interface,omitempty" json:"interface,omitempty"`

	// JoinTimeout bounds the wait for the interface to come up.
	JoinTimeout time.Duration `yaml:"join_timeout" json:"join_timeout" validate:"gt=0"`
}

// PollConfig holds the cooperative wait intervals.
type PollConfig struct {
	// Resolve is the event loop step used while a lookup is pending.
	Resolve time.Duration `yaml:"resolve" json:"resolve" validate:"gt=0"`

	// Connect is the step used while the handshake is pending, and the base
	// delay between handle close retries.
	Connect time.Duration `yaml:"connect" json:"connect" validate:"gt=0"`

	// Ack is the step used while waiting for the request acknowledgment.
	Ack time.Duration `yaml:"ack" json:"ack" validate:"gt=0"`

	// Response is the step used while the response is being received.
	Response time.Duration `yaml:"response" json:"response" validate:"gt=0"`

	// IdleShots is how many coarse timer shots pass between idle callbacks.
	IdleShots uint8 `yaml:"idle_shots" json:"idle_shots" validate:"gte=1"`
}

// DefaultConfig returns the compiled-in defaults. TrustAnchor is left empty;
// it has no meaningful default.
func DefaultConfig() Config {
	return Config{
		Hostname: "example.edu",
		Path:     "/",
		Port:     HTTPSPort,
		LogLevel: "info",
		Network: NetworkConfig{
			JoinTimeout: 20 * time.Second,
		},
		Poll: PollConfig{
			Resolve:   100 * time.Millisecond,
			Connect:   100 * time.Millisecond,
			Ack:       100 * time.Millisecond,
			Response:  100 * time.Millisecond,
			IdleShots: 2,
		},
		ResponseWait: 5 * time.Second,
	}
}

// IdleInterval is the idle callback period implied by IdleShots.
func (p PollConfig) IdleInterval() time.Duration {
	return time.Duration(p.IdleShots) * CoarseShot
}

// ConfigOption is a functional option for configuring a fetch.
type ConfigOption func(*Config)

// WithHostname sets the target server.
func WithHostname(host string) ConfigOption {
	return func(c *Config) {
		c.Hostname = host
	}
}

// WithPath sets the request target.
func WithPath(path string) ConfigOption {
	return func(c *Config) {
		if path != "" {
			c.Path = path
		}
	}
}

// WithPort overrides the HTTPS port.
func WithPort(port uint16) ConfigOption {
	return func(c *Config) {
		if port != 0 {
			c.Port = port
		}
	}
}

// WithTrustAnchor sets the CA certificate bytes.
func WithTrustAnchor(cert []byte) ConfigOption {
	return func(c *Config) {
		c.TrustAnchor = cert
	}
}

// WithHeader adds an extra request header.
func WithHeader(name, value string) ConfigOption {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[name] = value
	}
}

// WithConnectTimeout bounds the handshake wait.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d >= 0 {
			c.ConnectTimeout = d
		}
	}
}

// WithAckTimeout bounds the acknowledgment wait.
func WithAckTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d >= 0 {
			c.AckTimeout = d
		}
	}
}

// WithResponseWait sets how long the response is read.
func WithResponseWait(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d >= 0 {
			c.ResponseWait = d
		}
	}
}

// WithPollInterval sets the resolve, connect, ack and response steps at once.
func WithPollInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.Poll.Resolve = d
			c.Poll.Connect = d
			c.Poll.Ack = d
			c.Poll.Response = d
		}
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
