// Package schema defines extraction schemas and the fixed-key records filled
// against them.
//
// A Schema is an ordered, immutable list of fields. Each field carries a primary
// prompt template, an optional repair template, and the sentinel value stored when
// nothing could be extracted. Templates reference the document exactly once as
// {{.Text}}.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"
)

// DocumentVar is the only template variable a prompt may reference.
const DocumentVar = "Text"

// DefaultEmptyValues are the values treated as "nothing was found" when a schema
// does not declare its own set.
var DefaultEmptyValues = []string{"Not mentioned", "Not available"}

var (
	ErrNoFields       = errors.New("schema has no fields")
	ErrDuplicateField = errors.New("duplicate field name")
	ErrInvalidField   = errors.New("invalid field definition")
	ErrUnknownField   = errors.New("unknown field")
)

// FieldSpec is the declarative form of a field, as written in schema files.
type FieldSpec struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Sentinel     string `yaml:"sentinel" json:"sentinel"`
	Prompt       string `yaml:"prompt" json:"prompt"`
	RepairPrompt string `yaml:"repair_prompt,omitempty" json:"repair_prompt,omitempty"`
}

// Field is a validated field definition. Fields are owned by their Schema.
type Field struct {
	spec   FieldSpec
	index  int
	prompt *template.Template
	repair *template.Template
}

func (f *Field) Name() string        { return f.spec.Name }
func (f *Field) Description() string { return f.spec.Description }
func (f *Field) Sentinel() string    { return f.spec.Sentinel }
func (f *Field) Index() int          { return f.index }

// HasRepair reports whether the field defines a repair prompt.
func (f *Field) HasRepair() bool { return f.repair != nil }

// Spec returns the declarative form of the field.
func (f *Field) Spec() FieldSpec { return f.spec }

// RenderPrompt substitutes the document into the primary prompt.
func (f *Field) RenderPrompt(text string) (string, error) {
	return render(f.prompt, text)
}

// RenderRepairPrompt substitutes the document into the repair prompt.
func (f *Field) RenderRepairPrompt(text string) (string, error) {
	if f.repair == nil {
		return "", fmt.Errorf("field %q has no repair prompt", f.spec.Name)
	}
	return render(f.repair, text)
}

// Schema is an ordered set of fields plus the global empty-value set.
// It is immutable after New returns and safe for concurrent use.
type Schema struct {
	name        string
	description string
	fields      []*Field
	index       map[string]int
	emptyValues []string
}

// Option configures a Schema during construction.
type Option func(*Schema)

// WithEmptyValues replaces DefaultEmptyValues for the schema.
func WithEmptyValues(values ...string) Option {
	return func(s *Schema) {
		s.emptyValues = slices.Clone(values)
	}
}

// WithDescription sets a human-readable description.
func WithDescription(desc string) Option {
	return func(s *Schema) {
		s.description = desc
	}
}

// New validates the field specs and builds a Schema. The specs are copied.
func New(name string, specs []FieldSpec, opts ...Option) (*Schema, error) {
	if len(specs) == 0 {
		return nil, ErrNoFields
	}

	s := &Schema{
		name:        name,
		fields:      make([]*Field, 0, len(specs)),
		index:       make(map[string]int, len(specs)),
		emptyValues: slices.Clone(DefaultEmptyValues),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidField, i)
		}
		if _, exists := s.index[spec.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, spec.Name)
		}
		if spec.Sentinel == "" {
			return nil, fmt.Errorf("%w: field %s has no sentinel", ErrInvalidField, spec.Name)
		}

		f := &Field{spec: spec, index: i}

		var err error
		f.prompt, err = compileTemplate(spec.Name, spec.Prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s prompt: %v", ErrInvalidField, spec.Name, err)
		}
		if spec.RepairPrompt != "" {
			f.repair, err = compileTemplate(spec.Name+".repair", spec.RepairPrompt)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s repair prompt: %v", ErrInvalidField, spec.Name, err)
			}
		}

		s.index[spec.Name] = i
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Description returns the schema description, if any.
func (s *Schema) Description() string { return s.description }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns the fields in schema order.
func (s *Schema) Fields() []*Field { return slices.Clone(s.fields) }

// FieldAt returns the field at position i.
func (s *Schema) FieldAt(i int) *Field { return s.fields[i] }

// Field looks up a field by name.
func (s *Schema) Field(name string) (*Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.spec.Name
	}
	return names
}

// EmptyValues returns the schema's global empty-value set.
func (s *Schema) EmptyValues() []string { return slices.Clone(s.emptyValues) }

// IsEmptyValue reports whether v is one of the global empty values (exact match).
func (s *Schema) IsEmptyValue(v string) bool {
	return slices.Contains(s.emptyValues, v)
}

// RepairCount returns how many fields define a repair prompt.
func (s *Schema) RepairCount() int {
	n := 0
	for _, f := range s.fields {
		if f.HasRepair() {
			n++
		}
	}
	return n
}
