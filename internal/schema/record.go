package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Record holds one value per schema field. It is created fully populated with
// sentinels and never gains or loses keys.
//
// Each slot may be written by its own goroutine; writers of distinct slots need
// no coordination. Readers must wait for writers to finish.
type Record struct {
	schema *Schema
	values []string
}

// Pair is a field name and its value.
type Pair struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// NewRecord returns a record with every field set to its sentinel.
func (s *Schema) NewRecord() *Record {
	values := make([]string, len(s.fields))
	for i, f := range s.fields {
		values[i] = f.spec.Sentinel
	}
	return &Record{schema: s, values: values}
}

// Schema returns the schema the record was built from.
func (r *Record) Schema() *Schema { return r.schema }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.values) }

// Names returns the field names in schema order.
func (r *Record) Names() []string { return r.schema.Names() }

// Value returns the value at position i.
func (r *Record) Value(i int) string { return r.values[i] }

// Get returns the value of the named field.
func (r *Record) Get(name string) (string, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// SetAt overwrites the value at position i.
func (r *Record) SetAt(i int, value string) {
	r.values[i] = value
}

// Set overwrites the value of the named field.
func (r *Record) Set(name, value string) error {
	i, ok := r.schema.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	r.values[i] = value
	return nil
}

// Clone returns an independent copy sharing the same schema.
func (r *Record) Clone() *Record {
	return &Record{schema: r.schema, values: slices.Clone(r.values)}
}

// Map returns the record as a plain map.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for i, f := range r.schema.fields {
		m[f.spec.Name] = r.values[i]
	}
	return m
}

// Pairs returns the record's name/value pairs in schema order.
func (r *Record) Pairs() []Pair {
	pairs := make([]Pair, len(r.values))
	for i, f := range r.schema.fields {
		pairs[i] = Pair{Name: f.spec.Name, Value: r.values[i]}
	}
	return pairs
}

// MarshalJSON writes the record as an object with keys in schema order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.spec.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the record as a mapping with keys in schema order.
func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, f := range r.schema.fields {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.spec.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.values[i]},
		)
	}
	return node, nil
}
