package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// checkSchema validates the raw document structure before decoding.
func checkSchema(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Field: "document", Err: err}
	}
	// Round-trip through JSON so the validator sees JSON-native types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return &ValidationError{Field: "document", Err: err}
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return &ValidationError{Field: "document", Err: err}
	}

	if err := s.Validate(normalized); err != nil {
		return &ValidationError{Field: "schema", Err: err}
	}
	return nil
}
