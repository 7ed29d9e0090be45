package client

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/internal/stacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddr = entities.AddressFrom(netip.MustParseAddr("192.0.2.10"))

func newTestClient(t *testing.T, opts ...Option) (*Client, *stacktest.Stack, *stacktest.TLS) {
	t.Helper()
	stack := stacktest.NewStack()
	tlsp := &stacktest.TLS{}
	base := []Option{
		WithHostname("example.edu"),
		WithTrustAnchor([]byte("anchor")),
		WithPollInterval(time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(stack, tlsp, append(base, opts...)...), stack, tlsp
}

func testRequest(t *testing.T) entities.Request {
	t.Helper()
	req, err := entities.NewGETRequest("example.edu", "/", nil)
	require.NoError(t, err)
	return req
}

func assertBalanced(t *testing.T, c *Client, tlsp *stacktest.TLS) {
	t.Helper()
	stats := c.PoolStats()
	assert.Equal(t, stats.Acquired, stats.Released, "context acquire/release must balance")
	assert.Equal(t, 0, tlsp.Live(), "every TLS config must be freed")
}

func TestNew_Defaults(t *testing.T) {
	c := New(stacktest.NewStack(), &stacktest.TLS{})

	assert.Equal(t, "example.edu", c.cfg.hostname)
	assert.Equal(t, entities.HTTPSPort, c.cfg.port)
	assert.Equal(t, 100*time.Millisecond, c.cfg.resolvePoll)
	assert.Equal(t, 100*time.Millisecond, c.cfg.connectPoll)
	assert.Equal(t, uint8(2), c.cfg.idleShots)
	assert.Zero(t, c.cfg.connectTimeout)
	assert.Zero(t, c.cfg.ackTimeout)
	assert.Equal(t, 1, c.cfg.contexts)
}

func TestWithConfig(t *testing.T) {
	cfg := entities.NewConfig(
		entities.WithHostname("www.example.org"),
		entities.WithPort(8443),
		entities.WithTrustAnchor([]byte("ca")),
		entities.WithConnectTimeout(3*time.Second),
		entities.WithPollInterval(10*time.Millisecond),
	)

	c := New(stacktest.NewStack(), &stacktest.TLS{}, WithConfig(cfg))

	assert.Equal(t, "www.example.org", c.cfg.hostname)
	assert.Equal(t, uint16(8443), c.cfg.port)
	assert.Equal(t, []byte("ca"), c.cfg.trustAnchor)
	assert.Equal(t, 3*time.Second, c.cfg.connectTimeout)
	assert.Equal(t, 10*time.Millisecond, c.cfg.ackPoll)
}

func TestContextPool(t *testing.T) {
	p := newContextPool(1)

	first := p.acquire()
	require.NotNil(t, first)
	assert.Nil(t, p.acquire(), "capacity exhausted")

	p.release(first)
	second := p.acquire()
	require.NotNil(t, second)
	p.release(second)

	assert.Equal(t, PoolStats{Acquired: 2, Released: 2, Refused: 1}, p.stats())
}

func TestContextPool_ZeroCapacity(t *testing.T) {
	p := newContextPool(0)
	assert.Nil(t, p.acquire())
	assert.Equal(t, uint32(1), p.stats().Refused)
}
