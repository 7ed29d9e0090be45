package stacktest

import (
	"errors"

	"github.com/reglet-dev/oneshot/domain/ports"
)

// ErrBadAnchor is returned for an empty trust anchor.
var ErrBadAnchor = errors.New("stacktest: unusable trust anchor")

// Config is the opaque configuration the fake TLS provider hands out.
type Config struct {
	ID     int
	Anchor []byte
	Freed  bool
}

// TLS is a fake ports.TLSProvider.
type TLS struct {
	// NewErr fails every NewClientConfig call.
	NewErr error
	// ReturnNil makes NewClientConfig succeed without a configuration.
	ReturnNil bool

	Created int
	Freed   int
	configs []*Config
}

var _ ports.TLSProvider = (*TLS)(nil)

func (t *TLS) NewClientConfig(trustAnchor []byte) (ports.TLSConfig, error) {
	if t.NewErr != nil {
		return nil, t.NewErr
	}
	if len(trustAnchor) == 0 {
		return nil, ErrBadAnchor
	}
	if t.ReturnNil {
		return nil, nil
	}
	t.Created++
	cfg := &Config{ID: t.Created, Anchor: trustAnchor}
	t.configs = append(t.configs, cfg)
	return cfg, nil
}

func (t *TLS) FreeConfig(cfg ports.TLSConfig) {
	if c, ok := cfg.(*Config); ok {
		c.Freed = true
	}
	t.Freed++
}

// Live returns the number of configurations not yet freed.
func (t *TLS) Live() int { return t.Created - t.Freed }

// Session is a fake ports.TLSSession.
type Session struct {
	Hostname string
	Err      error
	Calls    int
}

var _ ports.TLSSession = (*Session)(nil)

func (s *Session) SetHostname(name string) error {
	s.Calls++
	if s.Err != nil {
		return s.Err
	}
	s.Hostname = name
	return nil
}
