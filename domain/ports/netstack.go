package ports

import (
	"context"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
)

// EventLoop is the cooperative dispatch step of a network stack.
//
// Every completion callback a stack delivers (lookup, connect, sent, receive,
// idle poll, fatal error) runs from inside Step, on the goroutine that called
// it. Code waiting on a callback therefore calls Step repeatedly; state shared
// with callbacks is never touched concurrently.
type EventLoop interface {
	// Step runs every ready callback. When none is ready it blocks for at most
	// wait, then returns. It returns ctx.Err() if ctx ends first.
	Step(ctx context.Context, wait time.Duration) error
}

// LookupFunc receives the answer of an asynchronous lookup: a concrete
// address or the failed sentinel.
type LookupFunc func(name string, addr entities.Address)

// NetStack is the non-blocking network stack a fetch runs on.
type NetStack interface {
	EventLoop

	// LookupHost resolves name. When the answer is known immediately it is
	// returned with a nil error and done is never called. Otherwise
	// LookupHost returns errors.ErrInProgress and calls done exactly once
	// from a later Step. Any other error is an immediate rejection.
	LookupHost(name string, done LookupFunc) (entities.Address, error)

	// NewConn allocates a TLS connection handle bound to cfg and family.
	NewConn(cfg TLSConfig, family entities.AddrFamily) (Conn, error)
}

// ConnHandler is the callback table of one connection. The stack invokes it
// only from Step.
type ConnHandler interface {
	// OnConnected fires once when the TCP and TLS handshakes completed.
	OnConnected(conn Conn) error

	// OnSent reports n bytes of written data acknowledged by the peer.
	OnSent(conn Conn, n int) error

	// OnRecv hands over a chain of received segments. A nil chain with a nil
	// err is the peer's orderly close. errors.ErrAborted as err means the
	// connection was aborted; the handler must free the chain and must not
	// abort again. For a nil or aborted err the handler owns the chain and
	// releases it with Conn.FreeChain. For any other err the handler leaves
	// the chain alone and returns the error; the stack keeps ownership.
	OnRecv(conn Conn, chain *entities.Segment, err error) error

	// OnPoll fires periodically while the connection is open and idle.
	OnPoll(conn Conn) error

	// OnError reports a fatal error. The handle has already been released
	// by the stack and must not be closed again.
	OnError(err error)
}

// Conn is a connection handle owned by the stack.
type Conn interface {
	// SetHandler installs the callback table. It must be called before Connect.
	SetHandler(h ConnHandler)

	// SetPollInterval sets the idle callback period in coarse timer shots.
	SetPollInterval(shots uint8)

	// TLSSession exposes the TLS session behind the handle.
	TLSSession() TLSSession

	// Connect starts the TCP and TLS handshakes. A nil return means exactly
	// one of OnConnected or OnError will follow. A non-nil return means no
	// callback will fire for this request.
	Connect(addr entities.Address, port uint16) error

	// Write queues data for sending. It fails with errors.ErrMem when the
	// send buffer or the send queue is full.
	Write(data []byte) error

	// Output flushes queued data to the network.
	Output() error

	// SndBuf returns the free space of the send buffer in bytes.
	SndBuf() int

	// Recved advances the receive window by n consumed bytes.
	Recved(n int)

	// FreeChain releases every segment of a chain handed to OnRecv.
	FreeChain(chain *entities.Segment)

	// Close shuts the connection down and releases the handle. A non-nil
	// error means the handle is still held and Close may be retried.
	Close() error

	// Abort resets the connection and releases the handle unconditionally.
	Abort()
}
