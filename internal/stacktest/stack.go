// Package stacktest provides scriptable in-memory implementations of the
// network stack, TLS and link ports. Events are queued and delivered from
// Step, like a real callback-driven stack.
package stacktest

import (
	"context"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Stack is a fake ports.NetStack.
type Stack struct {
	// LookupFunc overrides LookupHost. By default names resolve
	// asynchronously to Addr.
	LookupFunc func(name string, done ports.LookupFunc) (entities.Address, error)

	// NewConnFunc overrides NewConn. By default Conn is returned.
	NewConnFunc func(cfg ports.TLSConfig, family entities.AddrFamily) (ports.Conn, error)

	// Addr is the answer of the default lookup.
	Addr entities.Address

	// Conn is the handle the default NewConn returns.
	Conn *Conn

	pending []func()

	Steps        int
	Lookups      int
	NewConnCalls int
	LastFamily   entities.AddrFamily
	LastConfig   ports.TLSConfig
}

var _ ports.NetStack = (*Stack)(nil)

// NewStack returns a stack resolving every name to 192.0.2.1 and handing out
// a fresh Conn.
func NewStack() *Stack {
	s := &Stack{Addr: entities.AddressFrom(netipMust("192.0.2.1"))}
	s.Conn = NewConn(s)
	return s
}

// Post queues fn for delivery on the next Step.
func (s *Stack) Post(fn func()) {
	s.pending = append(s.pending, fn)
}

// Pending returns the number of queued events.
func (s *Stack) Pending() int { return len(s.pending) }

// Step delivers every queued event. Events queued while delivering wait for
// the next Step.
func (s *Stack) Step(ctx context.Context, wait time.Duration) error {
	s.Steps++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.pending) == 0 {
		pause := time.Millisecond
		if wait < pause {
			pause = wait
		}
		t := time.NewTimer(pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		return nil
	}
	batch := s.pending
	s.pending = nil
	for _, fn := range batch {
		fn()
	}
	return nil
}

// LookupHost implements ports.NetStack.
func (s *Stack) LookupHost(name string, done ports.LookupFunc) (entities.Address, error) {
	s.Lookups++
	if s.LookupFunc != nil {
		return s.LookupFunc(name, done)
	}
	addr := s.Addr
	s.Post(func() { done(name, addr) })
	return entities.UnsetAddress(), errors.ErrInProgress
}

// NewConn implements ports.NetStack.
func (s *Stack) NewConn(cfg ports.TLSConfig, family entities.AddrFamily) (ports.Conn, error) {
	s.NewConnCalls++
	s.LastConfig = cfg
	s.LastFamily = family
	if s.NewConnFunc != nil {
		return s.NewConnFunc(cfg, family)
	}
	return s.Conn, nil
}

// SyncLookup answers every lookup immediately with addr.
func SyncLookup(addr entities.Address) func(string, ports.LookupFunc) (entities.Address, error) {
	return func(string, ports.LookupFunc) (entities.Address, error) {
		return addr, nil
	}
}
