package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed file.schema.json
var fileSchemaJSON string

// File is the on-disk (YAML) form of a schema.
type File struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	EmptyValues []string    `yaml:"empty_values,omitempty" json:"empty_values,omitempty"`
	Fields      []FieldSpec `yaml:"fields" json:"fields"`
}

var compileFileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("file.schema.json", strings.NewReader(fileSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load schema file definition: %w", err)
	}
	return compiler.Compile("file.schema.json")
})

// Load parses a YAML schema document, checks its structure, and builds the Schema.
func Load(data []byte) (*Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("schema YAML is not JSON-compatible: %w", err)
	}
	var doc any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}

	validator, err := compileFileSchema()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid schema file: %w", err)
	}

	var f File
	if err := json.Unmarshal(asJSON, &f); err != nil {
		return nil, fmt.Errorf("failed to decode schema file: %w", err)
	}
	return f.Build()
}

// LoadFile reads and loads a YAML schema from path.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Build converts the file form into a validated Schema.
func (f File) Build() (*Schema, error) {
	opts := []Option{WithDescription(f.Description)}
	if f.EmptyValues != nil {
		opts = append(opts, WithEmptyValues(f.EmptyValues...))
	}
	return New(f.Name, f.Fields, opts...)
}

// Export returns the file form of s.
func Export(s *Schema) File {
	f := File{
		Name:        s.name,
		Description: s.description,
		EmptyValues: s.EmptyValues(),
		Fields:      make([]FieldSpec, len(s.fields)),
	}
	for i, field := range s.fields {
		f.Fields[i] = field.spec
	}
	return f
}
