package client

import (
	"context"
	stdErrors "errors"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
)

// Resolve looks up host on the client's stack.
//
// A lookup the stack answers synchronously returns without touching the
// event loop. An in-progress lookup steps the loop at the resolve interval
// until the callback writes the address slot. The result is valid or an
// error is returned.
func (c *Client) Resolve(ctx context.Context, host string) (entities.Address, error) {
	addr := entities.UnsetAddress()
	var done signal

	got, err := c.stack.LookupHost(host, func(_ string, a entities.Address) {
		if !addr.IsUnset() {
			return
		}
		addr = a
		done.fire()
	})

	switch {
	case err == nil:
		addr = got
	case stdErrors.Is(err, errors.ErrInProgress):
		c.logger.Debug("lookup in progress", "host", host)
		w := waiter{loop: c.stack, step: c.cfg.resolvePoll}
		if _, err := w.await(ctx, &done); err != nil {
			return entities.UnsetAddress(), &errors.DNSError{Hostname: host, Err: err}
		}
	default:
		return entities.UnsetAddress(), &errors.DNSError{Hostname: host, Err: err}
	}

	if !addr.IsValid() {
		return addr, &errors.DNSError{Hostname: host, Err: errors.ErrResolveFailed}
	}
	return addr, nil
}
