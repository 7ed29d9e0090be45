package client

import (
	"context"
	"fmt"

	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

var _ ports.ConnHandler = (*Context)(nil)

// OnConnected marks the connection established and wakes the connect wait.
func (c *Context) OnConnected(ports.Conn) error {
	if c.released {
		return nil
	}
	c.established = true
	c.connected.fire()
	c.logger.Debug("connected")
	return nil
}

// OnSent records the acknowledged byte count. The last report wins; a zero
// count leaves the ack wait blocked.
func (c *Context) OnSent(_ ports.Conn, n int) error {
	if c.released {
		return nil
	}
	c.acknowledged = n
	if n != 0 {
		c.acked.fire()
	}
	c.logger.Debug("sent acknowledged", "bytes", n)
	return nil
}

// OnPoll is the idle hook. Nothing is done besides counting.
func (c *Context) OnPoll(ports.Conn) error {
	if c.released {
		return nil
	}
	c.idlePolls++
	return nil
}

// OnError handles a fatal connection error. The stack has already released
// the handle, so only the config and the context are freed.
func (c *Context) OnError(err error) {
	if c.released {
		return
	}
	c.logger.Warn("connection error", "error", err)
	c.lossErr = &errors.NetworkError{Operation: "connection", Err: joinLost(err)}
	_ = c.teardown(context.Background(), false)
}

func joinLost(err error) error {
	if err == nil {
		return errors.ErrConnectionLost
	}
	return fmt.Errorf("%w: %w", errors.ErrConnectionLost, err)
}

// lostErr is the error reported to waiters once the error callback fired.
func (c *Context) lostErr() error {
	if c.lossErr == nil {
		return errors.ErrConnectionLost
	}
	return c.lossErr
}
