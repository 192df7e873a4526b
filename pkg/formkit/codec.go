package formkit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDocument is returned when there is nothing to decode.
	ErrEmptyDocument = errors.New("formkit: empty document")
	// ErrUnknownFormat is returned for schema files with an unrecognised extension.
	ErrUnknownFormat = errors.New("formkit: unknown schema format")
)

// DecodeSchema decodes a schema from JSON or YAML. The input may be a schema
// object ({"id", "name", "fields"}), a persisted record with the same keys,
// or a bare fields array.
func DecodeSchema(data []byte) (FormSchema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormSchema{}, ErrEmptyDocument
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return DecodeSchemaJSON(trimmed)
	}
	return DecodeSchemaYAML(trimmed)
}

// DecodeSchemaJSON decodes a JSON schema object or fields array.
func DecodeSchemaJSON(data []byte) (FormSchema, error) {
	var schema FormSchema
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return schema, ErrEmptyDocument
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &schema.Fields); err != nil {
			return FormSchema{}, fmt.Errorf("decode fields: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &schema); err != nil {
		return FormSchema{}, fmt.Errorf("decode schema: %w", err)
	}
	schema.Fields = NormalizeFields(schema.Fields)
	return schema, nil
}

// DecodeSchemaYAML decodes a YAML schema mapping or fields sequence.
func DecodeSchemaYAML(data []byte) (FormSchema, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return FormSchema{}, fmt.Errorf("decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return FormSchema{}, ErrEmptyDocument
	}

	var schema FormSchema
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&schema.Fields); err != nil {
			return FormSchema{}, fmt.Errorf("decode fields: %w", err)
		}
	} else if err := root.Decode(&schema); err != nil {
		return FormSchema{}, fmt.Errorf("decode schema: %w", err)
	}
	schema.Fields = NormalizeFields(schema.Fields)
	return schema, nil
}

// LoadSchemaFile reads a schema from a .json, .yaml or .yml file.
func LoadSchemaFile(path string) (FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormSchema{}, fmt.Errorf("read schema: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeSchemaJSON(data)
	case ".yaml", ".yml":
		return DecodeSchemaYAML(data)
	case "":
		return DecodeSchema(data)
	default:
		return FormSchema{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// EncodeSchema renders a schema as indented JSON.
func EncodeSchema(schema FormSchema) ([]byte, error) {
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return out, nil
}
