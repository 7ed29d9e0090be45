package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlConfigParser_Parse(t *testing.T) {
	p := NewYamlConfigParser()

	cfg, err := p.Parse([]byte(`
hostname: www.example.org
path: /index.html
headers:
  User-Agent: oneshot
network:
  interface: wlan0
poll:
  resolve: 50ms
  idle_shots: 4
connect_timeout: 10s
response_wait: 2s
`))
	require.NoError(t, err)

	assert.Equal(t, "www.example.org", cfg.Hostname)
	assert.Equal(t, "/index.html", cfg.Path)
	assert.Equal(t, "oneshot", cfg.Headers["User-Agent"])
	assert.Equal(t, "wlan0", cfg.Network.Interface)
	assert.Equal(t, 50*time.Millisecond, cfg.Poll.Resolve)
	assert.Equal(t, uint8(4), cfg.Poll.IdleShots)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.ResponseWait)

	// Untouched fields keep their defaults.
	assert.Equal(t, uint16(443), cfg.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Poll.Connect)
	assert.Equal(t, 20*time.Second, cfg.Network.JoinTimeout)
}

func TestYamlConfigParser_ParseInvalid(t *testing.T) {
	_, err := NewYamlConfigParser().Parse([]byte("hostname: [unclosed"))

	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestYamlConfigParser_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.pem"), []byte("anchor bytes"), 0o600))
	path := filepath.Join(dir, "oneshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hostname: example.edu\ntrust_anchor_file: ca.pem\n"), 0o600))

	cfg, err := NewYamlConfigParser().Load(path)

	require.NoError(t, err)
	assert.Equal(t, []byte("anchor bytes"), cfg.TrustAnchor)
}

func TestYamlConfigParser_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewYamlConfigParser().Load(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing trust anchor", func(t *testing.T) {
		path := filepath.Join(dir, "oneshot.yaml")
		require.NoError(t, os.WriteFile(path, []byte("trust_anchor_file: nope.pem\n"), 0o600))

		_, err := NewYamlConfigParser().Load(path)

		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "trust_anchor_file", cfgErr.Field)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
