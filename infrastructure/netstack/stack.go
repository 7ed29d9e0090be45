// Package netstack implements the callback-driven network stack on top of
// the host's sockets and crypto/tls.
//
// Socket I/O runs on background goroutines, but every completion is queued
// and only delivered from Stack.Step on the caller's goroutine. Handlers
// never run concurrently with each other or with the code stepping the loop.
package netstack

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Sizes of the embedded stack the adapter imitates.
const (
	// Window is how many received bytes may be outstanding before reading stops.
	Window = 8 * entities.MaxSegmentSize
	// SendBuffer is the send buffer capacity in bytes.
	SendBuffer = 8 * entities.MaxSegmentSize
	// SendQueueLen is the maximum number of queued send segments.
	SendQueueLen = (4*SendBuffer + entities.MaxSegmentSize - 1) / entities.MaxSegmentSize
)

type stackConfig struct {
	logger        *slog.Logger
	nameserver    string
	network       string
	lookupTimeout time.Duration
	dialTimeout   time.Duration
	coarseShot    time.Duration
	window        int
	sendBuffer    int
	queueLen      int
	mss           int
	events        int
}

func defaultStackConfig() stackConfig {
	return stackConfig{
		logger:        slog.Default(),
		network:       "ip4",
		lookupTimeout: 5 * time.Second,
		dialTimeout:   30 * time.Second,
		coarseShot:    entities.CoarseShot,
		window:        Window,
		sendBuffer:    SendBuffer,
		queueLen:      SendQueueLen,
		mss:           entities.MaxSegmentSize,
		events:        64,
	}
}

// Option is a functional option for configuring a Stack.
type Option func(*stackConfig)

// WithLogger sets the logger for stack activity.
func WithLogger(logger *slog.Logger) Option {
	return func(c *stackConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNameserver resolves names through ns instead of the system resolver.
func WithNameserver(ns string) Option {
	return func(c *stackConfig) {
		c.nameserver = ns
	}
}

// WithLookupTimeout bounds each asynchronous lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *stackConfig) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

// WithDialTimeout bounds the TCP connect.
func WithDialTimeout(d time.Duration) Option {
	return func(c *stackConfig) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithIPv6 lets lookups return IPv6 addresses. By default only IPv4
// addresses are returned.
func WithIPv6() Option {
	return func(c *stackConfig) {
		c.network = "ip"
	}
}

// WithCoarseShot sets the timer granularity idle polls are counted in.
func WithCoarseShot(d time.Duration) Option {
	return func(c *stackConfig) {
		if d > 0 {
			c.coarseShot = d
		}
	}
}

// WithWindow sets the receive window in bytes.
func WithWindow(n int) Option {
	return func(c *stackConfig) {
		if n > 0 {
			c.window = n
		}
	}
}

// WithSendBuffer sets the send buffer capacity and derives the queue length
// from it.
func WithSendBuffer(n int) Option {
	return func(c *stackConfig) {
		if n > 0 {
			c.sendBuffer = n
			c.queueLen = (4*n + c.mss - 1) / c.mss
		}
	}
}

// Stack is a ports.NetStack backed by real sockets.
type Stack struct {
	cfg      stackConfig
	resolver *net.Resolver
	events   chan func()
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	cache  map[string]entities.Address
	conns  map[*Conn]struct{}
	closed bool
}

var _ ports.NetStack = (*Stack)(nil)

// New creates a Stack.
func New(opts ...Option) *Stack {
	cfg := defaultStackConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	resolver := &net.Resolver{PreferGo: true}
	if cfg.nameserver != "" {
		ns := cfg.nameserver
		if !strings.Contains(ns, ":") {
			ns += ":53"
		}
		resolver.Dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: cfg.lookupTimeout}
			return d.DialContext(ctx, network, ns)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Stack{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		resolver: resolver,
		events:   make(chan func(), cfg.events),
		done:     make(chan struct{}),
		cache:    make(map[string]entities.Address),
		conns:    make(map[*Conn]struct{}),
	}
}

// Step delivers ready events. With nothing ready it waits up to wait for the
// first event, then delivers everything that queued up meanwhile.
func (s *Stack) Step(ctx context.Context, wait time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case fn := <-s.events:
		fn()
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrClosed
	}

	for {
		select {
		case fn := <-s.events:
			fn()
		default:
			s.pollIdle()
			return nil
		}
	}
}

// post queues fn for delivery from Step. It gives up once the stack closed.
func (s *Stack) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// LookupHost answers IP literals and cached names synchronously and
// resolves anything else in the background.
func (s *Stack) LookupHost(name string, done ports.LookupFunc) (entities.Address, error) {
	if ip, err := netip.ParseAddr(name); err == nil {
		addr := entities.AddressFrom(ip)
		if !addr.IsValid() {
			return addr, fmt.Errorf("%w: %s", errors.ErrInvalidArg, name)
		}
		return addr, nil
	}

	host, err := entities.NormalizeHostname(name)
	if err != nil {
		return entities.UnsetAddress(), fmt.Errorf("%w: %w", errors.ErrInvalidArg, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entities.UnsetAddress(), errors.ErrClosed
	}
	if addr, ok := s.cache[host]; ok {
		s.mu.Unlock()
		return addr, nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.resolve(name, host, done)
	return entities.UnsetAddress(), errors.ErrInProgress
}

func (s *Stack) resolve(name, host string, done ports.LookupFunc) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.lookupTimeout)
	defer cancel()

	addr := entities.FailedAddress()
	ips, err := s.resolver.LookupNetIP(ctx, s.cfg.network, host)
	switch {
	case err != nil:
		s.cfg.logger.Debug("lookup failed", "host", host, "error", err)
	case len(ips) == 0:
		s.cfg.logger.Debug("lookup returned no addresses", "host", host)
	default:
		addr = entities.AddressFrom(ips[0])
		s.mu.Lock()
		s.cache[host] = addr
		s.mu.Unlock()
	}

	s.post(func() { done(name, addr) })
}

// NewConn allocates a connection handle bound to cfg, which must come from
// a TLSProvider of this package.
func (s *Stack) NewConn(cfg ports.TLSConfig, family entities.AddrFamily) (ports.Conn, error) {
	cc, ok := cfg.(*ClientConfig)
	if !ok || cc == nil || cc.freed {
		return nil, fmt.Errorf("%w: unusable TLS configuration", errors.ErrInvalidArg)
	}
	if family != entities.FamilyIPv4 && family != entities.FamilyIPv6 {
		return nil, fmt.Errorf("%w: address family %d", errors.ErrInvalidArg, family)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrClosed
	}
	c := newConn(s, cc.base.Clone(), family)
	s.conns[c] = struct{}{}
	return c, nil
}

func (s *Stack) forget(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// pollIdle fires the idle callback of every connection that saw no event
// for its poll interval.
func (s *Stack) pollIdle() {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	now := time.Now()
	for _, c := range conns {
		c.pollIfIdle(now)
	}
}

// Close releases every open handle and waits for background work to stop.
// Handles released this way get no callbacks.
func (s *Stack) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	close(s.done)
	s.cancel()
	for _, c := range conns {
		c.release(true)
	}
	s.wg.Wait()
	return nil
}
