// Package hostlink brings up the network link on a host operating system.
// Interface state is owned by the OS, so Init only checks that an interface
// exists and Join waits for one to come up with an address.
package hostlink

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

var (
	// ErrNoInterface means the host reports no network interfaces at all.
	ErrNoInterface = stdErrors.New("no network interface")

	// ErrNotInitialized means Join was called before Init.
	ErrNotInitialized = stdErrors.New("link not initialized")
)

// Interface is a snapshot of one network interface.
type Interface struct {
	Name     string
	Addrs    []netip.Prefix
	Up       bool
	Loopback bool
}

// usable reports whether traffic can leave through the interface.
func (i Interface) usable() bool {
	return i.Up && !i.Loopback && len(i.Addrs) > 0
}

// InterfaceSource lists the current interfaces.
type InterfaceSource func() ([]Interface, error)

// SystemInterfaces lists the host's interfaces.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifaces))
	for _, ifc := range ifaces {
		info := Interface{
			Name:     ifc.Name,
			Up:       ifc.Flags&net.FlagUp != 0,
			Loopback: ifc.Flags&net.FlagLoopback != 0,
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			if p, err := netip.ParsePrefix(a.String()); err == nil {
				info.Addrs = append(info.Addrs, p)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

type linkConfig struct {
	source  InterfaceSource
	logger  *slog.Logger
	pollMin time.Duration
	pollMax time.Duration
}

// Option is a functional option for configuring a Link.
type Option func(*linkConfig)

// WithInterfaceSource replaces the system interface listing.
func WithInterfaceSource(src InterfaceSource) Option {
	return func(c *linkConfig) {
		if src != nil {
			c.source = src
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *linkConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPollInterval sets the bounds of the join polling backoff.
func WithPollInterval(minWait, maxWait time.Duration) Option {
	return func(c *linkConfig) {
		if minWait > 0 && maxWait >= minWait {
			c.pollMin = minWait
			c.pollMax = maxWait
		}
	}
}

// Link is a ports.Link over the host's interfaces.
type Link struct {
	cfg linkConfig

	mu     sync.Mutex
	inited bool
}

var _ ports.Link = (*Link)(nil)

// New creates a Link.
func New(opts ...Option) *Link {
	cfg := linkConfig{
		source:  SystemInterfaces,
		logger:  slog.Default(),
		pollMin: 100 * time.Millisecond,
		pollMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Link{cfg: cfg}
}

// Init checks that the host has network interfaces.
func (l *Link) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &errors.LinkError{Operation: "init", Err: err}
	}
	ifaces, err := l.cfg.source()
	if err != nil {
		return &errors.LinkError{Operation: "init", Err: err}
	}
	if len(ifaces) == 0 {
		return &errors.LinkError{Operation: "init", Err: ErrNoInterface}
	}

	l.mu.Lock()
	l.inited = true
	l.mu.Unlock()
	return nil
}

// Join waits until the named interface, or any usable one when name is
// empty, is up with an address.
func (l *Link) Join(ctx context.Context, name string, timeout time.Duration) error {
	l.mu.Lock()
	inited := l.inited
	l.mu.Unlock()
	if !inited {
		return &errors.LinkError{Operation: "join", Interface: name, Err: ErrNotInitialized}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	b := &backoff.Backoff{
		Min:    l.cfg.pollMin,
		Max:    l.cfg.pollMax,
		Factor: 2,
	}
	for {
		ifaces, err := l.cfg.source()
		if err != nil {
			return &errors.LinkError{Operation: "join", Interface: name, Err: err}
		}
		if ifc, ok := pick(ifaces, name); ok {
			l.cfg.logger.Debug("link up", "interface", ifc.Name, "addrs", len(ifc.Addrs), "attempts", int(b.Attempt())+1)
			return nil
		}

		wait := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			wait.Stop()
			return &errors.LinkError{Operation: "join", Interface: name, Err: ctx.Err()}
		case <-deadline.C:
			wait.Stop()
			return &errors.LinkError{
				Operation: "join",
				Interface: name,
				Err:       &errors.TimeoutError{Operation: "join", Target: name, Duration: timeout},
			}
		case <-wait.C:
		}
	}
}

// Deinit forgets the initialization. It is safe to call more than once.
func (l *Link) Deinit() error {
	l.mu.Lock()
	l.inited = false
	l.mu.Unlock()
	return nil
}

func pick(ifaces []Interface, name string) (Interface, bool) {
	for _, ifc := range ifaces {
		if name != "" && ifc.Name != name {
			continue
		}
		if ifc.usable() {
			return ifc, true
		}
	}
	return Interface{}, false
}
