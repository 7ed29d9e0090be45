package ports

import (
	"context"
	"time"
)

// Link brings the network interface up before any traffic is sent.
type Link interface {
	// Init prepares the network hardware.
	Init(ctx context.Context) error

	// Join waits until the named interface (any non-loopback interface when
	// name is empty) is up with a usable address, or timeout elapses.
	Join(ctx context.Context, name string, timeout time.Duration) error

	// Deinit releases what Init acquired. It is safe to call more than once.
	Deinit() error
}
