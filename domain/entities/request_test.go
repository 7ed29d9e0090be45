package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGETRequest(t *testing.T) {
	req, err := NewGETRequest("example.edu", "/", nil)
	require.NoError(t, err)

	assert.Equal(t, "GET / HTTP/1.1\r\nHost: example.edu\r\n\r\n", req.String())
	assert.Equal(t, 37, req.Len())
}

func TestNewGETRequest_Headers(t *testing.T) {
	req, err := NewGETRequest("example.edu", "/status", map[string]string{
		"User-Agent": "oneshot",
		"Accept":     "*/*",
		"host":       "ignored.example",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"GET /status HTTP/1.1\r\nHost: example.edu\r\nAccept: */*\r\nUser-Agent: oneshot\r\n\r\n",
		req.String())
}

func TestNewGETRequest_BytesIsCopy(t *testing.T) {
	req, err := NewGETRequest("example.edu", "", nil)
	require.NoError(t, err)

	b := req.Bytes()
	b[0] = 'X'
	assert.True(t, strings.HasPrefix(req.String(), "GET / "), "empty path defaults to /")
}

func TestNewGETRequest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		path    string
		headers map[string]string
		wantErr error
	}{
		{name: "empty host", host: "", path: "/", wantErr: ErrInvalidHostname},
		{name: "oversized host", host: strings.Repeat("a.", 130) + "edu", path: "/", wantErr: ErrInvalidHostname},
		{name: "too large", host: "example.edu", path: "/" + strings.Repeat("x", MaxSegmentSize), wantErr: ErrRequestTooLarge},
		{name: "relative path", host: "example.edu", path: "index.html", wantErr: ErrInvalidPath},
		{name: "path splits request line", host: "example.edu", path: "/a HTTP/1.1\r\nHost: evil.test\r\nX: /", wantErr: ErrInvalidPath},
		{name: "path with space", host: "example.edu", path: "/a b", wantErr: ErrInvalidPath},
		{name: "path with tab", host: "example.edu", path: "/a\tb", wantErr: ErrInvalidPath},
		{name: "path with bare LF", host: "example.edu", path: "/a\n", wantErr: ErrInvalidPath},
		{name: "path with DEL", host: "example.edu", path: "/a\x7f", wantErr: ErrInvalidPath},
		{name: "header injection", host: "example.edu", path: "/", headers: map[string]string{"X": "a\r\nEvil: 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGETRequest(tt.host, tt.path, tt.headers)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewGETRequest_EscapedPathAccepted(t *testing.T) {
	req, err := NewGETRequest("example.edu", "/search?q=a%20b&x=%0D%0A", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(req.String(), "Host: "))
	assert.True(t, strings.HasPrefix(req.String(), "GET /search?q=a%20b&x=%0D%0A HTTP/1.1\r\n"))
}

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.edu", "example.edu"},
		{"Example.EDU.", "example.edu"},
		{"bücher.example", "xn--bcher-kva.example"},
	}
	for _, tt := range tests {
		got, err := NormalizeHostname(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
