package client

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/reglet-dev/oneshot/domain/ports"
)

// Context is the state shared by every callback of one connection.
//
// It exclusively owns the TLS configuration from allocation until teardown.
// established and acknowledged are written only by callbacks and read only
// by the waits in Connect and Send.
type Context struct {
	conn      ports.Conn
	tls       ports.TLSProvider
	tlsConfig ports.TLSConfig
	out       io.Writer
	logger    *slog.Logger
	pool      *contextPool

	lossErr error

	connected  signal
	acked      signal
	closed     signal
	peerClosed signal

	acknowledged int
	received     int64
	idlePolls    int
	closePoll    time.Duration

	established bool
	released    bool
}

// Established reports whether the connect callback has fired.
func (c *Context) Established() bool { return c.established }

// Acknowledged returns the byte count of the last sent callback.
func (c *Context) Acknowledged() int { return c.acknowledged }

// Received returns the number of response bytes forwarded so far.
func (c *Context) Received() int64 { return c.received }

// IdlePolls returns how many idle callbacks fired.
func (c *Context) IdlePolls() int { return c.idlePolls }

// Released reports whether teardown has run.
func (c *Context) Released() bool { return c.released }

// PeerClosed reports whether the server closed its side.
func (c *Context) PeerClosed() bool { return c.peerClosed.isSet() }

// PoolStats counts connection context allocations.
// Acquired minus Released is the number of contexts still live.
type PoolStats struct {
	Acquired uint32
	Released uint32
	Refused  uint32
}

// contextPool hands out connection contexts up to a fixed capacity and
// counts every acquire and release.
type contextPool struct {
	capacity int
	na       atomic.Uint32 // acquires
	np       atomic.Uint32 // releases
	nf       atomic.Uint32 // refused acquires
}

func newContextPool(capacity int) *contextPool {
	return &contextPool{capacity: capacity}
}

// acquire returns a fresh context, or nil when capacity is exhausted.
func (p *contextPool) acquire() *Context {
	if int(p.na.Load()-p.np.Load()) >= p.capacity {
		p.nf.Add(1)
		return nil
	}
	p.na.Add(1)
	return &Context{pool: p}
}

func (p *contextPool) release(*Context) {
	p.np.Add(1)
}

func (p *contextPool) stats() PoolStats {
	return PoolStats{
		Acquired: p.na.Load(),
		Released: p.np.Load(),
		Refused:  p.nf.Load(),
	}
}
