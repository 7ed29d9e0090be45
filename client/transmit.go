package client

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
)

// Send writes req and waits until the peer acknowledged it.
//
// The request must be acknowledged in full by a single sent callback; a
// smaller count is a failure. Any failure tears the session down.
func (s *Session) Send(ctx context.Context, req entities.Request) error {
	cc := s.cc
	data := req.Bytes()
	fail := func(op string, err error) error {
		_ = cc.teardown(ctx, true)
		return &errors.TransmitError{Operation: op, Submitted: len(data), Err: err}
	}

	if cc.released {
		return &errors.TransmitError{Operation: "write", Submitted: len(data), Err: cc.lostErr()}
	}

	cc.acknowledged = 0
	cc.acked.reset()

	if err := cc.conn.Write(data); err != nil {
		return fail("write", err)
	}
	if err := cc.conn.Output(); err != nil {
		return fail("output", err)
	}

	wctx, cancel := withOptionalTimeout(ctx, s.client.cfg.ackTimeout)
	defer cancel()

	w := waiter{loop: s.client.stack, step: s.client.cfg.ackPoll}
	idx, err := w.await(wctx, &cc.acked, &cc.closed)
	switch {
	case err != nil:
		if stdErrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &errors.TimeoutError{Operation: "ack", Target: s.addr.String(), Duration: s.client.cfg.ackTimeout}
		}
		return fail("ack", err)
	case idx == 1:
		return &errors.TransmitError{Operation: "ack", Submitted: len(data), Err: cc.lostErr()}
	}

	if cc.acknowledged != len(data) {
		cc.logger.Warn("partial acknowledgment", "acknowledged", cc.acknowledged, "submitted", len(data))
		return fail("ack", errors.ErrPartialAck)
	}
	return nil
}

// AwaitResponse keeps stepping the event loop for wait so the response can
// arrive through the receive callback. It returns early when the peer closes
// or the connection is lost; a lost connection is not an error here.
func (s *Session) AwaitResponse(ctx context.Context, wait time.Duration) error {
	cc := s.cc
	if cc.released {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	w := waiter{loop: s.client.stack, step: s.client.cfg.responsePoll}
	idx, err := w.await(wctx, &cc.peerClosed, &cc.closed)
	switch {
	case err == nil && idx == 1:
		cc.logger.Info("connection lost while receiving", "error", cc.lostErr(), "bytes", cc.received)
	case err == nil:
		cc.logger.Debug("response complete", "bytes", cc.received)
	case stdErrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		cc.logger.Debug("response wait elapsed", "bytes", cc.received)
	default:
		return err
	}
	return nil
}

// Close tears the session down: the handle is closed, the TLS configuration
// freed and the context released. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	return s.cc.teardown(ctx, true)
}

// Context returns the connection context behind the session.
func (s *Session) Context() *Context { return s.cc }

// Addr returns the address the session is connected to.
func (s *Session) Addr() entities.Address { return s.addr }
