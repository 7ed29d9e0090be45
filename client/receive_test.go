package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/internal/stacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecvContext(out io.Writer) (*Context, *stacktest.Conn) {
	stack := stacktest.NewStack()
	pool := newContextPool(1)
	cc := pool.acquire()
	cc.conn = stack.Conn
	cc.tls = &stacktest.TLS{}
	cc.out = out
	cc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cc, stack.Conn
}

func TestOnRecv_ThreeSegmentChain(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)
	chain := entities.NewChain([]byte("HTTP/1.1 200 OK\r\n"), []byte("Content-Length: 2\r\n\r\n"), []byte("hi"))
	require.Equal(t, 3, chain.Count())

	require.NoError(t, cc.OnRecv(conn, chain, nil))

	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi", out.String())
	assert.Equal(t, []int{chain.TotLen}, conn.RecvedLens, "window advanced once by the total length")
	require.Len(t, conn.Freed, 1)
	assert.Same(t, chain, conn.Freed[0])
	assert.Equal(t, int64(chain.TotLen), cc.Received())
}

func TestOnRecv_ForwardsEveryChainInOrder(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)

	chains := []*entities.Segment{
		entities.NewChain([]byte("a"), []byte("bc")),
		entities.NewChain([]byte("def")),
		entities.NewChain([]byte("g"), []byte(""), []byte("hij")),
	}
	for _, ch := range chains {
		require.NoError(t, cc.OnRecv(conn, ch, nil))
	}

	assert.Equal(t, "abcdefghij", out.String())
	assert.Equal(t, []int{3, 3, 4}, conn.RecvedLens)
	assert.Len(t, conn.Freed, 3)
}

func TestOnRecv_Abort(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)
	chain := entities.NewChain([]byte("partial"))

	require.NoError(t, cc.OnRecv(conn, chain, errors.ErrAborted))

	assert.Empty(t, out.String())
	assert.Empty(t, conn.RecvedLens)
	require.Len(t, conn.Freed, 1)
	assert.Zero(t, conn.Aborts, "abort is never signaled again")
}

func TestOnRecv_OtherErrorLeavesChainToStack(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)
	chain := entities.NewChain([]byte("kept"))

	err := cc.OnRecv(conn, chain, errors.ErrMem)

	assert.ErrorIs(t, err, errors.ErrMem)
	assert.Empty(t, out.String())
	assert.Empty(t, conn.Freed, "the stack keeps the chain")
	assert.Empty(t, conn.RecvedLens)
	assert.False(t, cc.PeerClosed())
}

func TestOnRecv_PeerClose(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)

	require.NoError(t, cc.OnRecv(conn, nil, nil))

	assert.True(t, cc.PeerClosed())
	assert.Empty(t, out.String())
	assert.Empty(t, conn.Freed)
}

func TestOnRecv_ReleasedContextDropsData(t *testing.T) {
	var out bytes.Buffer
	cc, conn := newRecvContext(&out)
	require.NoError(t, cc.teardown(context.Background(), false))

	require.NoError(t, cc.OnRecv(conn, entities.NewChain([]byte("late")), nil))

	assert.Empty(t, out.String())
	assert.Len(t, conn.Freed, 1)
	assert.Empty(t, conn.RecvedLens)
}
