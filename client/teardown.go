package client

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// maxCloseAttempts bounds how often a refused close is retried before the
// handle is aborted.
const maxCloseAttempts = 8

// teardown releases everything the context holds. It runs once; later calls
// return nil. closeHandle is false when the stack already released the handle.
func (c *Context) teardown(ctx context.Context, closeHandle bool) error {
	if c.released {
		return nil
	}
	c.released = true

	var err error
	if closeHandle && c.conn != nil {
		err = c.closeConn(ctx)
	}
	if c.tlsConfig != nil {
		c.tls.FreeConfig(c.tlsConfig)
		c.tlsConfig = nil
	}
	c.conn = nil
	c.closed.fire()
	c.pool.release(c)
	return err
}

// closeConn closes the handle, retrying while the stack refuses. When the
// attempts run out or ctx ends the handle is aborted instead.
func (c *Context) closeConn(ctx context.Context) error {
	b := &backoff.Backoff{
		Min:    c.closePoll,
		Max:    c.closePoll * 16,
		Factor: 2,
	}
	var err error
	for attempt := 0; attempt < maxCloseAttempts; attempt++ {
		if err = c.conn.Close(); err == nil {
			return nil
		}
		c.logger.Debug("close refused, retrying", "attempt", attempt+1, "error", err)

		t := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			c.conn.Abort()
			return ctx.Err()
		case <-t.C:
		}
	}
	c.logger.Warn("close kept failing, aborting", "error", err)
	c.conn.Abort()
	return nil
}
