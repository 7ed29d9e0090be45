// Package schema generates the JSON schema of the fetch configuration file.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/oneshot/domain/entities"
)

// GenerateSchema creates a JSON schema from a Go struct.
// Field names follow the yaml tags, so the schema describes the file format.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ConfigSchema returns the schema of the configuration file.
func ConfigSchema() ([]byte, error) {
	return GenerateSchema(&entities.Config{})
}
