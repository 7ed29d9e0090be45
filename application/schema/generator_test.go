package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_YamlFieldNames(t *testing.T) {
	type ServerConfig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	type FileConfig struct {
		Server  ServerConfig      `yaml:"server"`
		Headers map[string]string `yaml:"headers,omitempty"`
		Secret  []byte            `yaml:"-"`
	}

	schema, err := GenerateSchema(FileConfig{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	properties, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, properties, "server")
	assert.Contains(t, properties, "headers")
	assert.NotContains(t, properties, "Secret")
	assert.Contains(t, string(schema), "host")
}

func TestConfigSchema(t *testing.T) {
	schema, err := ConfigSchema()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	properties, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok, "properties should be a map")
	for _, field := range []string{"hostname", "path", "port", "network", "poll", "connect_timeout", "ack_timeout", "response_wait", "trust_anchor_file"} {
		assert.Contains(t, properties, field)
	}
	assert.NotContains(t, properties, "TrustAnchor", "certificate bytes are not part of the file")

	required, ok := decoded["required"].([]interface{})
	require.True(t, ok, "required should be an array")
	assert.Contains(t, required, "hostname")
	assert.NotContains(t, required, "headers")
}
