package netstack

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// ClientConfig is the TLS configuration handed out by TLSProvider. It is
// bound to connection handles created by Stack.NewConn.
type ClientConfig struct {
	base  *tls.Config
	freed bool
}

// TLSProvider builds client TLS configurations that trust a single anchor.
type TLSProvider struct {
	mu      sync.Mutex
	created int
	freed   int
}

var _ ports.TLSProvider = (*TLSProvider)(nil)

// NewTLSProvider creates a TLS provider.
func NewTLSProvider() *TLSProvider {
	return &TLSProvider{}
}

// NewClientConfig parses trustAnchor (PEM or DER) and returns a configuration
// verifying servers against it.
func (p *TLSProvider) NewClientConfig(trustAnchor []byte) (ports.TLSConfig, error) {
	pool, err := certPool(trustAnchor)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()

	return &ClientConfig{
		base: &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		},
	}, nil
}

// FreeConfig releases a configuration. Freeing twice has no effect.
func (p *TLSProvider) FreeConfig(cfg ports.TLSConfig) {
	cc, ok := cfg.(*ClientConfig)
	if !ok || cc == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cc.freed {
		return
	}
	cc.freed = true
	p.freed++
}

// Live returns how many configurations are allocated and not freed.
func (p *TLSProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created - p.freed
}

func certPool(anchor []byte) (*x509.CertPool, error) {
	if len(anchor) == 0 {
		return nil, fmt.Errorf("%w: empty trust anchor", errors.ErrInvalidArg)
	}

	pool := x509.NewCertPool()
	if bytes.Contains(anchor, []byte("-----BEGIN")) {
		block, _ := pem.Decode(anchor)
		if block == nil || block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: trust anchor is not a PEM certificate", errors.ErrInvalidArg)
		}
		if !pool.AppendCertsFromPEM(anchor) {
			return nil, fmt.Errorf("%w: trust anchor has no usable certificate", errors.ErrInvalidArg)
		}
		return pool, nil
	}

	cert, err := x509.ParseCertificate(anchor)
	if err != nil {
		return nil, fmt.Errorf("parsing trust anchor: %w", err)
	}
	pool.AddCert(cert)
	return pool, nil
}

// session is the TLS session behind a Conn. The server name may only be set
// before the handshake starts.
type session struct {
	conn       *Conn
	serverName string
}

var _ ports.TLSSession = (*session)(nil)

func (s *session) SetHostname(name string) error {
	host, err := entities.NormalizeHostname(name)
	if err != nil {
		return err
	}

	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.conn.state != stateIdle {
		return fmt.Errorf("%w: server name set after connect", errors.ErrInvalidArg)
	}
	s.serverName = host
	return nil
}
