package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// MaxSegmentSize is the largest request that fits in one TCP segment.
// A request must fit in a single segment so that one acknowledgment covers
// all of it.
const MaxSegmentSize = 1460

// MaxHostnameLen is the longest name the TLS layer accepts for SNI.
const MaxHostnameLen = 255

var (
	// ErrRequestTooLarge is returned when a request does not fit in one segment.
	ErrRequestTooLarge = errors.New("request exceeds a single segment")

	// ErrInvalidHostname is returned for empty, oversized or non-IDNA names.
	ErrInvalidHostname = errors.New("invalid hostname")

	// ErrInvalidPath is returned for a request target that is not an
	// absolute path or that would split the request line.
	ErrInvalidPath = errors.New("invalid request path")
)

// isPathDelimiter reports space and control characters, which end the
// request target on the wire.
func isPathDelimiter(r rune) bool {
	return r <= ' ' || r == 0x7f
}

// NormalizeHostname converts a hostname to the ASCII form used on the wire,
// both for the Host header and the Server Name Indication extension.
func NormalizeHostname(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidHostname)
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidHostname, host, err)
	}
	if len(ascii) > MaxHostnameLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidHostname, len(ascii), MaxHostnameLen)
	}
	return ascii, nil
}

// Request is an immutable, fully serialized HTTP/1.1 request.
type Request struct {
	raw []byte
}

// NewGETRequest builds "GET <path> HTTP/1.1" with a Host header and any
// extra headers, sorted by name so the bytes are deterministic.
func NewGETRequest(host, path string, headers map[string]string) (Request, error) {
	host, err := NormalizeHostname(host)
	if err != nil {
		return Request{}, err
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		return Request{}, fmt.Errorf("%w: %q must start with /", ErrInvalidPath, path)
	}
	if i := strings.IndexFunc(path, isPathDelimiter); i >= 0 {
		return Request{}, fmt.Errorf("%w: %q has byte %#x at offset %d", ErrInvalidPath, path, path[i], i)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)

	names := make([]string, 0, len(headers))
	for name := range headers {
		if strings.EqualFold(name, "Host") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.ContainsAny(name+headers[name], "\r\n") {
			return Request{}, fmt.Errorf("header %q contains a line break", name)
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, headers[name])
	}
	b.WriteString("\r\n")

	if b.Len() > MaxSegmentSize {
		return Request{}, fmt.Errorf("%w: %d bytes", ErrRequestTooLarge, b.Len())
	}
	return Request{raw: []byte(b.String())}, nil
}

// Bytes returns a copy of the serialized request.
func (r Request) Bytes() []byte {
	return append([]byte(nil), r.raw...)
}

// Len returns the serialized size in bytes.
func (r Request) Len() int {
	return len(r.raw)
}

// String returns the request text.
func (r Request) String() string {
	return string(r.raw)
}
