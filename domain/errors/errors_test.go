package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/oneshot/domain/entities"
)

func TestNetworkError(t *testing.T) {
	baseErr := fmt.Errorf("%w: reset by peer", ErrConnectionLost)
	err := &NetworkError{
		Operation: "connection",
		Target:    "192.0.2.1:443",
		Err:       baseErr,
	}

	assert.Equal(t, "network connection failed for 192.0.2.1:443: connection lost: reset by peer", err.Error())
	assert.True(t, errors.Is(err, ErrConnectionLost))

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "connection", netErr.Operation)
}

func TestNetworkError_NoTarget(t *testing.T) {
	err := &NetworkError{Operation: "connection", Err: ErrAborted}
	assert.Equal(t, "network connection failed: connection aborted", err.Error())
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{
		Operation: "connect",
		Duration:  5 * time.Second,
		Target:    "192.0.2.1",
	}

	assert.Equal(t, "connect timeout after 5s (target: 192.0.2.1)", err.Error())
	assert.True(t, err.Timeout())

	detail := err.ToErrorDetail()
	assert.Equal(t, "timeout", detail.Type)
	assert.True(t, detail.IsTimeout)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "poll.resolve", Err: errors.New("must be positive")}
	assert.Equal(t, "config validation failed for field 'poll.resolve': must be positive", err.Error())
	assert.Equal(t, "poll.resolve", err.ToErrorDetail().Code)

	noField := &ConfigError{Err: errors.New("config is nil")}
	assert.Equal(t, "config validation failed: config is nil", noField.Error())
}

func TestLinkError(t *testing.T) {
	err := &LinkError{
		Operation: "join",
		Interface: "wlan0",
		Err:       &TimeoutError{Operation: "join", Duration: 20 * time.Second},
	}

	assert.Equal(t, "link join failed for wlan0: join timeout after 20s", err.Error())
	detail := err.ToErrorDetail()
	assert.Equal(t, "link", detail.Type)
	assert.Equal(t, "link_join", detail.Code)
	assert.True(t, detail.IsTimeout)
}

func TestDNSError(t *testing.T) {
	err := &DNSError{Hostname: "example.edu", Err: ErrResolveFailed}

	assert.Equal(t, "dns lookup for example.edu failed: hostname did not resolve", err.Error())
	assert.False(t, err.Timeout())
	detail := err.ToErrorDetail()
	assert.Equal(t, "network", detail.Type)
	assert.True(t, detail.IsNotFound)
}

func TestDNSError_Timeout(t *testing.T) {
	err := &DNSError{Hostname: "example.edu", Err: &TimeoutError{Operation: "resolve"}}
	assert.True(t, err.Timeout())
	assert.Equal(t, "timeout", err.ToErrorDetail().Type)
}

func TestEstablishError(t *testing.T) {
	err := &EstablishError{
		State: entities.StateSNISet,
		Err:   ErrAllocFailed,
	}

	assert.Equal(t, "establish failed after sni_set: connection context allocation failed", err.Error())
	assert.True(t, errors.Is(err, ErrAllocFailed))
	assert.Equal(t, "establish_sni_set", err.ToErrorDetail().Code)
}

func TestEstablishError_WrapsTCPTimeout(t *testing.T) {
	err := &EstablishError{
		State: entities.StateConnectIssued,
		Err:   &TimeoutError{Operation: "connect", Duration: time.Second},
	}
	detail := ToErrorDetail(err)
	assert.Equal(t, "timeout", detail.Type)
	assert.True(t, detail.IsTimeout)
}

func TestTransmitError(t *testing.T) {
	err := &TransmitError{Operation: "ack", Submitted: 38, Err: ErrPartialAck}

	assert.Equal(t, "transmit ack of 38 bytes failed: partial acknowledgment", err.Error())
	assert.True(t, errors.Is(err, ErrPartialAck))
	assert.Equal(t, "transmit_ack", err.ToErrorDetail().Code)
}

func TestMemoryError(t *testing.T) {
	err := &MemoryError{Resource: "send buffer", Requested: 20000, Current: 0, Limit: 11680}

	assert.Equal(t, "send buffer allocation failed: requested 20000, current 0, limit 11680", err.Error())
	assert.True(t, errors.Is(err, ErrMem))
	assert.False(t, errors.Is(err, ErrAborted))
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	plain := ToErrorDetail(errors.New("boom"))
	assert.Equal(t, "internal", plain.Type)
	assert.Equal(t, "boom", plain.Message)

	wrapped := fmt.Errorf("fetch: %w", &TCPError{Network: "tcp", Address: "192.0.2.1", Err: ErrClosed})
	detail := ToErrorDetail(wrapped)
	assert.Equal(t, "network", detail.Type)
	assert.Equal(t, "tcp_connect", detail.Code)
}

func TestErrorDetail_Error(t *testing.T) {
	detail := (&ConfigError{Field: "port", Err: errors.New("required")}).ToErrorDetail()
	assert.Equal(t, "config: config validation failed for field 'port': required [port]", detail.Error())

	var nilDetail *ErrorDetail
	assert.Equal(t, "", nilDetail.Error())
}
