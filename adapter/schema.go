package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/skosovsky/promptsdk"
)

const schemaResource = "response_format.json"

// ValidateSchema checks that schema is JSON-serializable and compiles as a JSON Schema.
// Failures wrap promptsdk.ErrSchemaValidation; an empty schema yields ErrMissingSchema.
func ValidateSchema(schema map[string]any) error {
	if len(schema) == 0 {
		return ErrMissingSchema
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("%w: schema is not JSON-serializable: %w", promptsdk.ErrSchemaValidation, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: schema: %w", promptsdk.ErrSchemaValidation, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return fmt.Errorf("%w: schema: %w", promptsdk.ErrSchemaValidation, err)
	}
	if _, err := c.Compile(schemaResource); err != nil {
		return fmt.Errorf("%w: compiling schema: %w", promptsdk.ErrSchemaValidation, err)
	}
	return nil
}

// SchemaJSON returns the schema as raw JSON. Call ValidateSchema first.
func SchemaJSON(schema map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: schema is not JSON-serializable: %w", promptsdk.ErrSchemaValidation, err)
	}
	return raw, nil
}
