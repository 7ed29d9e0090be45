package client

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Session is an established connection ready to carry one request.
type Session struct {
	client *Client
	cc     *Context
	addr   entities.Address
}

// Connect brings up a TLS connection to addr.
//
// Each step releases what the earlier steps acquired when it fails, so a
// returned error leaves nothing allocated. The error is an
// *errors.EstablishError naming the last state reached.
func (c *Client) Connect(ctx context.Context, addr entities.Address) (*Session, error) {
	state := entities.StateInit
	fail := func(err error) (*Session, error) {
		c.logger.Debug("establish failed", "state", state, "error", err)
		return nil, &errors.EstablishError{State: state, Err: err}
	}

	if !addr.IsValid() {
		return fail(fmt.Errorf("%w: address %s", errors.ErrInvalidArg, addr))
	}

	cfg, err := c.tls.NewClientConfig(c.cfg.trustAnchor)
	if err != nil {
		return fail(err)
	}
	if cfg == nil {
		return fail(errors.ErrNoTLSConfig)
	}
	state = entities.StateConfigured

	conn, err := c.stack.NewConn(cfg, addr.Family())
	if err != nil {
		c.tls.FreeConfig(cfg)
		return fail(err)
	}
	state = entities.StateHandleAllocated

	if err := conn.TLSSession().SetHostname(c.cfg.hostname); err != nil {
		c.closeUnowned(conn)
		c.tls.FreeConfig(cfg)
		return fail(err)
	}
	state = entities.StateSNISet

	cc := c.pool.acquire()
	if cc == nil {
		c.closeUnowned(conn)
		c.tls.FreeConfig(cfg)
		return fail(errors.ErrAllocFailed)
	}
	cc.conn = conn
	cc.tls = c.tls
	cc.tlsConfig = cfg
	cc.out = c.out
	cc.logger = c.logger.With("host", c.cfg.hostname)
	cc.closePoll = c.cfg.connectPoll

	conn.SetHandler(cc)
	conn.SetPollInterval(c.cfg.idleShots)
	state = entities.StateCallbacksInstalled

	if err := conn.Connect(addr, c.cfg.port); err != nil {
		_ = cc.teardown(ctx, true)
		return fail(&errors.TCPError{Network: "tcp", Address: addr.String(), Err: err})
	}
	state = entities.StateConnectIssued

	wctx, cancel := withOptionalTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	w := waiter{loop: c.stack, step: c.cfg.connectPoll}
	idx, err := w.await(wctx, &cc.connected, &cc.closed)
	switch {
	case err != nil:
		_ = cc.teardown(ctx, true)
		if stdErrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &errors.TimeoutError{Operation: "connect", Target: addr.String(), Duration: c.cfg.connectTimeout}
		}
		return fail(err)
	case idx == 1, cc.released:
		state = entities.StateFailed
		return fail(cc.lostErr())
	}

	c.logger.Debug("established", "addr", addr, "port", c.cfg.port)
	return &Session{client: c, cc: cc, addr: addr}, nil
}

// closeUnowned closes a handle that no context owns yet.
func (c *Client) closeUnowned(conn ports.Conn) {
	if err := conn.Close(); err != nil {
		c.logger.Debug("close refused, aborting", "error", err)
		conn.Abort()
	}
}
