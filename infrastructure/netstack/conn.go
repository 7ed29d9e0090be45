package netstack

import (
	"context"
	"crypto/tls"
	stdErrors "errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Conn is a TLS connection handle. The exported methods are meant to be
// called from the goroutine stepping the stack, including from handlers.
type Conn struct {
	stack   *Stack
	tlsCfg  *tls.Config
	family  entities.AddrFamily
	session *session
	handler ports.ConnHandler

	// Touched only from Step.
	pollShots  uint8
	lastActive time.Time

	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu          sync.Mutex
	cond        *sync.Cond
	state       connState
	raw         net.Conn
	nc          *tls.Conn
	sndQueue    []*bytebufferpool.ByteBuffer // written, not yet output
	flushQueue  []*bytebufferpool.ByteBuffer // output, not yet on the wire
	inflight    int
	rxQueue     []*bytebufferpool.ByteBuffer
	rxScheduled bool
	unacked     int
}

var _ ports.Conn = (*Conn)(nil)

func newConn(s *Stack, cfg *tls.Config, family entities.AddrFamily) *Conn {
	c := &Conn{
		stack:  s,
		tlsCfg: cfg,
		family: family,
		done:   make(chan struct{}),
		cancel: func() {},
	}
	c.cond = sync.NewCond(&c.mu)
	c.session = &session{conn: c}
	return c
}

func (c *Conn) SetHandler(h ports.ConnHandler) { c.handler = h }

// SetPollInterval sets the idle callback period in coarse shots. Zero
// disables idle callbacks.
func (c *Conn) SetPollInterval(shots uint8) { c.pollShots = shots }

func (c *Conn) TLSSession() ports.TLSSession { return c.session }

// Connect starts dialing addr:port in the background.
func (c *Conn) Connect(addr entities.Address, port uint16) error {
	if !addr.IsValid() || port == 0 {
		return fmt.Errorf("%w: connect to %s:%d", errors.ErrInvalidArg, addr, port)
	}
	if addr.Family() != c.family {
		return fmt.Errorf("%w: %s address on %s handle", errors.ErrInvalidArg, addr.Family(), c.family)
	}
	if c.handler == nil {
		return fmt.Errorf("%w: no handler installed", errors.ErrInvalidArg)
	}

	c.mu.Lock()
	if c.state != stateIdle {
		st := c.state
		c.mu.Unlock()
		if st == stateClosed {
			return errors.ErrClosed
		}
		return errors.ErrInProgress
	}
	c.state = stateConnecting
	cfg := c.tlsCfg.Clone()
	cfg.ServerName = c.session.serverName
	ctx, cancel := context.WithCancel(c.stack.ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.stack.wg.Add(1)
	go c.dial(ctx, netip.AddrPortFrom(addr.IP(), port), cfg)
	return nil
}

func (c *Conn) dial(ctx context.Context, ap netip.AddrPort, cfg *tls.Config) {
	defer c.stack.wg.Done()

	d := net.Dialer{Timeout: c.stack.cfg.dialTimeout}
	raw, err := d.DialContext(ctx, "tcp", ap.String())
	if err != nil {
		c.fail(&errors.TCPError{Network: "tcp", Address: ap.String(), Err: err})
		return
	}

	c.mu.Lock()
	if c.state != stateConnecting {
		c.mu.Unlock()
		_ = raw.Close()
		return
	}
	c.raw = raw
	c.mu.Unlock()

	tc := tls.Client(raw, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		c.fail(&errors.NetworkError{Operation: "handshake", Target: ap.String(), Err: err})
		return
	}

	c.mu.Lock()
	if c.state != stateConnecting {
		c.mu.Unlock()
		return
	}
	c.nc = tc
	c.state = stateConnected
	c.mu.Unlock()

	c.stack.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	c.post(c.deliverConnected)
}

// Write queues data in segments of at most one MSS. Nothing is sent before
// Output.
func (c *Conn) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	mss := c.stack.cfg.mss
	segs := (len(data) + mss - 1) / mss

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected {
		return errors.ErrClosed
	}
	if used := c.bufferedLocked(); used+len(data) > c.stack.cfg.sendBuffer {
		return &errors.MemoryError{Resource: "send buffer", Requested: len(data), Current: used, Limit: c.stack.cfg.sendBuffer}
	}
	if queued := len(c.sndQueue) + len(c.flushQueue); queued+segs > c.stack.cfg.queueLen {
		return &errors.MemoryError{Resource: "send queue", Requested: segs, Current: queued, Limit: c.stack.cfg.queueLen}
	}

	for off := 0; off < len(data); off += mss {
		end := min(off+mss, len(data))
		bb := bytebufferpool.Get()
		bb.B = append(bb.B[:0], data[off:end]...)
		c.sndQueue = append(c.sndQueue, bb)
	}
	return nil
}

// Output hands queued segments to the writer.
func (c *Conn) Output() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected {
		return errors.ErrClosed
	}
	if len(c.sndQueue) == 0 {
		return nil
	}
	c.flushQueue = append(c.flushQueue, c.sndQueue...)
	c.sndQueue = nil
	c.cond.Broadcast()
	return nil
}

// SndBuf returns the free send buffer space.
func (c *Conn) SndBuf() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected {
		return 0
	}
	return c.stack.cfg.sendBuffer - c.bufferedLocked()
}

func (c *Conn) bufferedLocked() int {
	n := c.inflight
	for _, bb := range c.sndQueue {
		n += bb.Len()
	}
	for _, bb := range c.flushQueue {
		n += bb.Len()
	}
	return n
}

// Recved reopens the receive window by n bytes.
func (c *Conn) Recved(n int) {
	c.mu.Lock()
	c.unacked -= n
	if c.unacked < 0 {
		c.unacked = 0
	}
	c.cond.Broadcast()
	c.mu.Unlock()
}

// FreeChain returns the chain's buffers to the pool.
func (c *Conn) FreeChain(chain *entities.Segment) {
	for seg := chain; seg != nil; seg = seg.Next {
		if bb, ok := seg.Handle.(*bytebufferpool.ByteBuffer); ok {
			bytebufferpool.Put(bb)
		}
		seg.Handle = nil
		seg.Payload = nil
	}
}

// Close shuts the connection down gracefully. While output is still being
// written it fails with errors.ErrMem and may be retried.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	if c.state == stateConnected && (len(c.flushQueue) > 0 || c.inflight > 0) {
		pending := len(c.flushQueue)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d segments unsent", errors.ErrMem, pending)
	}
	c.state = stateClosed
	c.mu.Unlock()

	c.release(false)
	return nil
}

// Abort resets the connection without a graceful shutdown.
func (c *Conn) Abort() {
	c.mu.Lock()
	c.state = stateClosed
	c.mu.Unlock()
	c.release(true)
}

// release frees the socket and buffers exactly once. reset skips the TLS
// close_notify and makes the kernel send RST.
func (c *Conn) release(reset bool) {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.state = stateClosed
		cancel := c.cancel
		raw, nc := c.raw, c.nc
		bufs := append(append(c.sndQueue, c.flushQueue...), c.rxQueue...)
		c.sndQueue, c.flushQueue, c.rxQueue = nil, nil, nil
		c.cond.Broadcast()
		c.mu.Unlock()

		cancel()
		switch {
		case reset && raw != nil:
			if tcp, ok := raw.(*net.TCPConn); ok {
				_ = tcp.SetLinger(0)
			}
			_ = raw.Close()
		case nc != nil:
			_ = nc.SetWriteDeadline(time.Now().Add(time.Second))
			_ = nc.Close()
		case raw != nil:
			_ = raw.Close()
		}
		for _, bb := range bufs {
			bytebufferpool.Put(bb)
		}
		c.stack.forget(c)
	})
}

// fail releases the handle after a fatal error and reports it. Errors after
// a local close are dropped.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.mu.Unlock()

	c.release(false)
	c.stack.cfg.logger.Debug("connection failed", "error", err)

	h := c.handler
	c.stack.post(func() { h.OnError(err) })
}

// post queues an event for this connection. Events are dropped once the
// handle was released.
func (c *Conn) post(fn func()) {
	select {
	case c.stack.events <- fn:
	case <-c.stack.done:
	case <-c.done:
	}
}

func (c *Conn) open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

func (c *Conn) deliverConnected() {
	if !c.open() {
		return
	}
	c.lastActive = time.Now()
	if err := c.handler.OnConnected(c); err != nil {
		c.stack.cfg.logger.Debug("connected handler failed", "error", err)
	}
}

func (c *Conn) deliverSent(n int) {
	if !c.open() {
		return
	}
	c.lastActive = time.Now()
	if err := c.handler.OnSent(c, n); err != nil {
		c.stack.cfg.logger.Debug("sent handler failed", "error", err)
	}
}

func (c *Conn) deliverRecv() {
	c.mu.Lock()
	queue := c.rxQueue
	c.rxQueue = nil
	c.rxScheduled = false
	open := c.state == stateConnected
	c.mu.Unlock()

	chain := chainOf(queue)
	if chain == nil {
		return
	}
	if !open {
		c.FreeChain(chain)
		return
	}
	c.lastActive = time.Now()
	if err := c.handler.OnRecv(c, chain, nil); err != nil {
		c.stack.cfg.logger.Debug("recv handler refused chain", "error", err)
		c.FreeChain(chain)
	}
}

func (c *Conn) deliverPeerClose() {
	if !c.open() {
		return
	}
	c.lastActive = time.Now()
	_ = c.handler.OnRecv(c, nil, nil)
}

// pollIfIdle runs from Step.
func (c *Conn) pollIfIdle(now time.Time) {
	if c.pollShots == 0 || c.lastActive.IsZero() || !c.open() {
		return
	}
	interval := time.Duration(c.pollShots) * c.stack.cfg.coarseShot
	if now.Sub(c.lastActive) < interval {
		return
	}
	c.lastActive = now
	_ = c.handler.OnPoll(c)
}

// chainOf links buffers into a segment chain, computing each TotLen.
func chainOf(bufs []*bytebufferpool.ByteBuffer) *entities.Segment {
	var head *entities.Segment
	total := 0
	for i := len(bufs) - 1; i >= 0; i-- {
		total += bufs[i].Len()
		head = &entities.Segment{
			Payload: bufs[i].B,
			Next:    head,
			Handle:  bufs[i],
			TotLen:  total,
		}
	}
	return head
}

func (c *Conn) readLoop() {
	defer c.stack.wg.Done()

	scratch := make([]byte, c.stack.cfg.mss)
	for {
		c.mu.Lock()
		for c.unacked >= c.stack.cfg.window && c.state == stateConnected {
			c.cond.Wait()
		}
		if c.state != stateConnected {
			c.mu.Unlock()
			return
		}
		nc := c.nc
		c.mu.Unlock()

		n, err := nc.Read(scratch)
		if n > 0 {
			c.enqueue(scratch[:n])
		}
		if err != nil {
			if stdErrors.Is(err, io.EOF) || stdErrors.Is(err, io.ErrUnexpectedEOF) {
				c.post(c.deliverPeerClose)
				return
			}
			c.fail(&errors.NetworkError{Operation: "read", Err: err})
			return
		}
	}
}

func (c *Conn) enqueue(p []byte) {
	bb := bytebufferpool.Get()
	bb.B = append(bb.B[:0], p...)

	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		bytebufferpool.Put(bb)
		return
	}
	c.unacked += len(p)
	c.rxQueue = append(c.rxQueue, bb)
	schedule := !c.rxScheduled
	c.rxScheduled = true
	c.mu.Unlock()

	if schedule {
		c.post(c.deliverRecv)
	}
}

func (c *Conn) writeLoop() {
	defer c.stack.wg.Done()

	for {
		c.mu.Lock()
		for len(c.flushQueue) == 0 && c.state == stateConnected {
			c.cond.Wait()
		}
		if c.state != stateConnected {
			c.mu.Unlock()
			return
		}
		batch := c.flushQueue
		c.flushQueue = nil
		for _, bb := range batch {
			c.inflight += bb.Len()
		}
		nc := c.nc
		c.mu.Unlock()

		var (
			written int
			err     error
		)
		for _, bb := range batch {
			if err == nil {
				var n int
				n, err = nc.Write(bb.B)
				written += n
			}
			bytebufferpool.Put(bb)
		}

		c.mu.Lock()
		c.inflight = 0
		c.mu.Unlock()

		if err != nil {
			c.fail(&errors.NetworkError{Operation: "write", Err: err})
			return
		}
		c.post(func() { c.deliverSent(written) })
	}
}
