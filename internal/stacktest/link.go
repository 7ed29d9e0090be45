package stacktest

import (
	"context"
	"time"

	"github.com/reglet-dev/oneshot/domain/ports"
)

// Link is a fake ports.Link.
type Link struct {
	InitErr error
	JoinErr error

	Inits   int
	Joins   int
	Deinits int
	Joined  string
	Timeout time.Duration
}

var _ ports.Link = (*Link)(nil)

func (l *Link) Init(context.Context) error {
	l.Inits++
	return l.InitErr
}

func (l *Link) Join(_ context.Context, name string, timeout time.Duration) error {
	l.Joins++
	l.Joined = name
	l.Timeout = timeout
	return l.JoinErr
}

func (l *Link) Deinit() error {
	l.Deinits++
	return nil
}
