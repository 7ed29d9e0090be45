package stacktest

import (
	"net/netip"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Conn is a fake ports.Conn. By default a connect succeeds on the next Step
// and every output is acknowledged in full on the Step after that.
type Conn struct {
	stack   *Stack
	handler ports.ConnHandler
	session *Session
	queued  []byte

	// ConnectErr rejects Connect synchronously.
	ConnectErr error
	// ConnectEvent replaces the default connected callback. It runs from Step.
	ConnectEvent func(h ports.ConnHandler, c *Conn)
	// WriteErr and OutputErr fail Write and Output.
	WriteErr  error
	OutputErr error
	// AckFunc maps a flushed length to the count reported by the sent
	// callback. Returning a negative value suppresses the callback.
	AckFunc func(n int) int
	// CloseErrs are returned by successive Close calls before Close succeeds.
	CloseErrs []error
	// SndBufSize is reported by SndBuf.
	SndBufSize int

	Connects   int
	Writes     int
	Outputs    int
	Closes     int
	Aborts     int
	PollShots  uint8
	ConnAddr   entities.Address
	ConnPort   uint16
	Written    []byte
	RecvedLens []int
	Freed      []*entities.Segment
	Released   bool
}

var _ ports.Conn = (*Conn)(nil)

// NewConn returns a conn that posts its events to stack.
func NewConn(stack *Stack) *Conn {
	return &Conn{stack: stack, session: &Session{}, SndBufSize: 8 * entities.MaxSegmentSize}
}

// Handler returns the installed callback table.
func (c *Conn) Handler() ports.ConnHandler { return c.handler }

// Session returns the fake TLS session.
func (c *Conn) Session() *Session { return c.session }

func (c *Conn) SetHandler(h ports.ConnHandler) { c.handler = h }

func (c *Conn) SetPollInterval(shots uint8) { c.PollShots = shots }

func (c *Conn) TLSSession() ports.TLSSession { return c.session }

func (c *Conn) Connect(addr entities.Address, port uint16) error {
	c.Connects++
	c.ConnAddr = addr
	c.ConnPort = port
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	h := c.handler
	c.stack.Post(func() {
		if c.ConnectEvent != nil {
			c.ConnectEvent(h, c)
			return
		}
		_ = h.OnConnected(c)
	})
	return nil
}

func (c *Conn) Write(data []byte) error {
	c.Writes++
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.queued = append(c.queued, data...)
	return nil
}

func (c *Conn) Output() error {
	c.Outputs++
	if c.OutputErr != nil {
		return c.OutputErr
	}
	n := len(c.queued)
	c.Written = append(c.Written, c.queued...)
	c.queued = nil
	if c.AckFunc != nil {
		n = c.AckFunc(n)
	}
	if n < 0 {
		return nil
	}
	h := c.handler
	c.stack.Post(func() { _ = h.OnSent(c, n) })
	return nil
}

func (c *Conn) SndBuf() int { return c.SndBufSize }

func (c *Conn) Recved(n int) { c.RecvedLens = append(c.RecvedLens, n) }

func (c *Conn) FreeChain(chain *entities.Segment) { c.Freed = append(c.Freed, chain) }

func (c *Conn) Close() error {
	c.Closes++
	if len(c.CloseErrs) > 0 {
		err := c.CloseErrs[0]
		c.CloseErrs = c.CloseErrs[1:]
		return err
	}
	c.Released = true
	return nil
}

func (c *Conn) Abort() {
	c.Aborts++
	c.Released = true
}

// Deliver queues a receive callback carrying chain.
func (c *Conn) Deliver(chain *entities.Segment) {
	h := c.handler
	c.stack.Post(func() { _ = h.OnRecv(c, chain, nil) })
}

// DeliverAbort queues a receive callback reporting an aborted connection.
func (c *Conn) DeliverAbort(chain *entities.Segment, err error) {
	h := c.handler
	c.stack.Post(func() { _ = h.OnRecv(c, chain, err) })
}

// PeerClose queues the orderly-close receive callback.
func (c *Conn) PeerClose() {
	h := c.handler
	c.stack.Post(func() { _ = h.OnRecv(c, nil, nil) })
}

// Fail queues a fatal error callback. The handle counts as released.
func (c *Conn) Fail(err error) {
	h := c.handler
	c.stack.Post(func() {
		c.Released = true
		h.OnError(err)
	})
}

// Poll queues an idle callback.
func (c *Conn) Poll() {
	h := c.handler
	c.stack.Post(func() { _ = h.OnPoll(c) })
}

func netipMust(s string) netip.Addr {
	return netip.MustParseAddr(s)
}
