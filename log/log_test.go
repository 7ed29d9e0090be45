package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAttrText(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantVal string
	}{
		{name: "string", attr: slog.String("key", "value"), wantVal: "value"},
		{name: "string with space", attr: slog.String("key", "two words"), wantVal: `"two words"`},
		{name: "empty string", attr: slog.String("key", ""), wantVal: `""`},
		{name: "int64", attr: slog.Int64("key", 123), wantVal: "123"},
		{name: "uint64", attr: slog.Uint64("key", 443), wantVal: "443"},
		{name: "bool", attr: slog.Bool("key", true), wantVal: "true"},
		{name: "float64", attr: slog.Float64("key", 1.25), wantVal: "1.25"},
		{
			name:    "time",
			attr:    slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantVal: "2024-01-01T00:00:00Z",
		},
		{name: "duration", attr: slog.Duration("key", 5*time.Second), wantVal: "5s"},
		{name: "error", attr: slog.Any("key", errors.New("test error")), wantVal: `"test error"`},
		{name: "stringer", attr: slog.Any("key", netip.MustParseAddr("192.0.2.1")), wantVal: "192.0.2.1"},
		{name: "nil", attr: slog.Any("key", nil), wantVal: "<nil>"},
		{name: "struct", attr: slog.Any("key", struct {
			Field string `json:"field"`
		}{Field: "data"}), wantVal: `{"field":"data"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flatten("", tt.attr)
			require.Len(t, got, 1)
			assert.Equal(t, "key", got[0].Key)
			assert.Equal(t, tt.wantVal, got[0].Value)
		})
	}
}

func TestFlatten_Groups(t *testing.T) {
	attr := slog.Group("conn", slog.String("host", "example.edu"), slog.Int("port", 443))

	got := flatten("req", attr)

	assert.Equal(t, []attrText{
		{Key: "req.conn.host", Value: "example.edu"},
		{Key: "req.conn.port", Value: "443"},
	}, got)
	assert.Empty(t, flatten("", slog.Group("empty")))
}

func TestFlatten_LogValuer(t *testing.T) {
	got := flatten("", slog.Any("key", logValuer{val: "resolved"}))

	require.Len(t, got, 1)
	assert.Equal(t, "resolved", got[0].Value)
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler()
	assert.NotNil(t, h)
	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestNewHandler_Options(t *testing.T) {
	h := NewHandler(
		WithLevel(slog.LevelDebug),
		WithSource(true),
	)
	assert.True(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestHandler_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithWriter(&buf))).With("stage", "resolve")

	logger.Info("Resolved example.edu", "addr", netip.MustParseAddr("192.0.2.1"))
	logger.Debug("hidden")
	logger.WithGroup("tls").Warn("retry", "attempt", 2)

	assert.Equal(t,
		"INFO  Resolved example.edu stage=resolve addr=192.0.2.1\n"+
			"WARN  retry stage=resolve tls.attempt=2\n",
		buf.String())
}

func TestHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(WithWriter(&buf), WithSource(true))).Info("here")

	assert.Contains(t, buf.String(), "source=")
	assert.Contains(t, buf.String(), "log_test.go:")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
