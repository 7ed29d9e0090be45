// Package errors provides the error taxonomy of a fetch.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/reglet-dev/oneshot/domain/entities"
)

// Status codes a network stack reports synchronously. They mirror the codes
// of an embedded TCP/IP stack and are matched with errors.Is.
var (
	// ErrInProgress means the operation was accepted and will complete
	// through a callback.
	ErrInProgress = stdErrors.New("operation in progress")

	// ErrMem means the send buffer or send queue has no room.
	ErrMem = stdErrors.New("out of buffer memory")

	// ErrAborted is passed to a receive callback after the connection was aborted.
	ErrAborted = stdErrors.New("connection aborted")

	// ErrClosed means the handle is closed or was never connected.
	ErrClosed = stdErrors.New("connection closed")

	// ErrInvalidArg means the stack rejected an argument.
	ErrInvalidArg = stdErrors.New("invalid argument")
)

// Failures detected by the client itself.
var (
	// ErrConnectionLost is reported when the stack's fatal-error callback fired.
	ErrConnectionLost = stdErrors.New("connection lost")

	// ErrPartialAck means fewer bytes were acknowledged than were submitted.
	ErrPartialAck = stdErrors.New("partial acknowledgment")

	// ErrResolveFailed means the lookup completed without an address.
	ErrResolveFailed = stdErrors.New("hostname did not resolve")

	// ErrAllocFailed means no connection context could be allocated.
	ErrAllocFailed = stdErrors.New("connection context allocation failed")

	// ErrNoTLSConfig means the TLS layer returned no configuration.
	ErrNoTLSConfig = stdErrors.New("no TLS configuration")
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return entities.NewErrorDetail("internal", err.Error())
}

// NetworkError represents a network operation failure.
type NetworkError struct {
	Err       error
	Operation string
	Target    string
}

func (e *NetworkError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("network %s failed for %s: %v", e.Operation, e.Target, e.Err)
	}
	return fmt.Sprintf("network %s failed: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *NetworkError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("network", e.Error()).WithCode(e.Operation)
}

// TimeoutError represents a timeout during an operation.
type TimeoutError struct {
	Operation string
	Target    string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s timeout after %v (target: %s)", e.Operation, e.Duration, e.Target)
	}
	return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.Operation, IsTimeout: true}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("config", e.Error()).WithCode(e.Field)
}

// LinkError represents a failure to bring up or join the network link.
type LinkError struct {
	Err       error
	Operation string // "init" or "join"
	Interface string
}

func (e *LinkError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("link %s failed for %s: %v", e.Operation, e.Interface, e.Err)
	}
	return fmt.Sprintf("link %s failed: %v", e.Operation, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LinkError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "link", Code: "link_" + e.Operation}
	var te *TimeoutError
	if stdErrors.As(e.Err, &te) {
		detail.IsTimeout = true
	}
	return detail
}

// DNSError represents a hostname resolution failure.
type DNSError struct {
	Err      error
	Hostname string
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("dns lookup for %s failed: %v", e.Hostname, e.Err)
}

func (e *DNSError) Unwrap() error {
	return e.Err
}

func (e *DNSError) Timeout() bool {
	if t, ok := e.Err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *DNSError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "network", Code: "dns_lookup"}
	if e.Timeout() {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	if stdErrors.Is(e.Err, ErrResolveFailed) {
		detail.IsNotFound = true
	}
	return detail
}

// TCPError represents a TCP connection failure.
type TCPError struct {
	Err     error
	Network string
	Address string
}

func (e *TCPError) Error() string {
	return fmt.Sprintf("tcp connect to %s (%s) failed: %v", e.Address, e.Network, e.Err)
}

func (e *TCPError) Unwrap() error {
	return e.Err
}

func (e *TCPError) Timeout() bool {
	if t, ok := e.Err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *TCPError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "network", Code: "tcp_connect"}
	if e.Timeout() {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	return detail
}

// EstablishError is a failure while bringing up the TLS connection. State is
// the last state reached; everything acquired up to it has been released.
type EstablishError struct {
	Err   error
	State entities.EstablishState
}

func (e *EstablishError) Error() string {
	return fmt.Sprintf("establish failed after %s: %v", e.State, e.Err)
}

func (e *EstablishError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EstablishError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "network", Code: "establish_" + e.State.String()}
	var te *TimeoutError
	if stdErrors.As(e.Err, &te) {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	return detail
}

// TransmitError is a failure while sending the request. Operation is the
// step that failed: "write", "output" or "ack".
type TransmitError struct {
	Err       error
	Operation string
	Submitted int
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit %s of %d bytes failed: %v", e.Operation, e.Submitted, e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TransmitError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "network", Code: "transmit_" + e.Operation}
	var te *TimeoutError
	if stdErrors.As(e.Err, &te) {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	return detail
}

// MemoryError represents a send buffer allocation failure. It matches ErrMem.
type MemoryError struct {
	Requested int // Requested allocation size
	Current   int // Current bytes buffered or segments queued
	Limit     int // Maximum allowed
	Resource  string
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("%s allocation failed: requested %d, current %d, limit %d",
		e.Resource, e.Requested, e.Current, e.Limit)
}

// Is reports ErrMem as a match.
func (e *MemoryError) Is(target error) bool {
	return target == ErrMem
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "memory_limit"}
}
