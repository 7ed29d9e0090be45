package client

import (
	stdErrors "errors"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// OnRecv forwards a received chain to the output sink.
//
// Every segment is written in order, the window is advanced by the chain's
// total length once, and the chain is freed once. A nil chain is the peer
// closing its side. On abort the chain is only freed. Any other error is
// handed back to the stack together with the chain.
func (c *Context) OnRecv(conn ports.Conn, chain *entities.Segment, err error) error {
	switch {
	case stdErrors.Is(err, errors.ErrAborted):
		if chain != nil {
			conn.FreeChain(chain)
		}
		return nil
	case err != nil:
		if !c.released {
			c.logger.Warn("receive error", "error", err)
		}
		return err
	case c.released:
		if chain != nil {
			conn.FreeChain(chain)
		}
		return nil
	}

	if chain == nil {
		c.peerClosed.fire()
		c.logger.Debug("peer closed connection")
		return nil
	}

	var forwarded int
	for seg := chain; seg != nil; seg = seg.Next {
		if seg.Len() == 0 {
			continue
		}
		n, werr := c.out.Write(seg.Payload)
		forwarded += n
		if werr != nil {
			c.logger.Error("writing response bytes", "error", werr, "segment_len", seg.Len())
		}
	}
	if forwarded != chain.TotLen {
		c.logger.Warn("chain length mismatch", "forwarded", forwarded, "tot_len", chain.TotLen)
	}
	c.received += int64(forwarded)

	conn.Recved(chain.TotLen)
	conn.FreeChain(chain)
	return nil
}
