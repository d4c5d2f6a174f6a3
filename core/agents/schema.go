package agents

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ConfigSchema reflects the JSON schema of the configuration document, used
// by the daemon's --print-config-schema flag and by editor tooling.
func ConfigSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Config{})
}

// ConfigSchemaJSON renders the schema as indented JSON.
func ConfigSchemaJSON() ([]byte, error) {
	schema, err := json.MarshalIndent(ConfigSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config schema: %w", err)
	}
	return schema, nil
}
