package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// FieldKind is the closed set of field types an entity schema can declare.
type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldEnum    FieldKind = "enum"
	FieldArray   FieldKind = "array"
	FieldObject  FieldKind = "object"
)

// FieldDefinition describes one field of an entity schema, including the
// constraints the validators enforce for it.
type FieldDefinition struct {
	// Name is the field name as it appears in documents.
	Name string `yaml:"name"`

	// Kind is the declared type of the field.
	Kind FieldKind `yaml:"type"`

	// Required defaults to true when omitted from the schema file.
	Required bool `yaml:"required"`

	// DefaultValue is applied when an optional field is missing on create.
	DefaultValue interface{} `yaml:"default"`

	// String constraints
	MinLength *int   `yaml:"minLength"`
	MaxLength *int   `yaml:"maxLength"`
	Pattern   string `yaml:"pattern"`

	// Number constraints
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Integer bool     `yaml:"integer"`

	// Enum value set
	Values []interface{} `yaml:"values"`

	// Array element descriptor
	Items *FieldDefinition `yaml:"items"`

	// Nested object schema
	Fields SchemaDefinition `yaml:"fields"`

	pattern *regexp.Regexp
}

// UnmarshalYAML decodes a field definition with Required defaulting to true.
func (f *FieldDefinition) UnmarshalYAML(value *yaml.Node) error {
	type rawFieldDefinition FieldDefinition
	raw := rawFieldDefinition{Required: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*f = FieldDefinition(raw)
	return nil
}

// CompiledPattern compiles and caches the regex constraint, if one is set.
func (f *FieldDefinition) CompiledPattern() (*regexp.Regexp, error) {
	if f.Pattern == "" {
		return nil, nil
	}
	if f.pattern == nil {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field '%s' has an invalid pattern %q: %w", f.Name, f.Pattern, err)
		}
		f.pattern = re
	}
	return f.pattern, nil
}

// SchemaDefinition is the ordered list of field definitions for an entity.
type SchemaDefinition []FieldDefinition

// Field returns the definition for the named field, if declared.
func (s SchemaDefinition) Field(name string) (*FieldDefinition, bool) {
	for i := range s {
		if s[i].Name == name {
			return &s[i], true
		}
	}
	return nil, false
}

// EntityDefinition ties a schema to the resource it is served as.
type EntityDefinition struct {
	// Name is the singular resource name, e.g. "product".
	Name string `yaml:"name"`

	// Plural is the collection and route segment. Defaults to Name + "s".
	Plural string `yaml:"plural"`

	// Description is used by the documentation generator.
	Description string `yaml:"description"`

	// UniqueFields lists the fields whose values must be distinct across
	// all documents of this entity. Order is the declaration order used
	// when reporting the violated field.
	UniqueFields []string `yaml:"uniqueFields"`

	// Schema describes the entity's own fields.
	Schema SchemaDefinition `yaml:"schema"`
}

// CollectionName returns the backing collection for this entity.
func (e *EntityDefinition) CollectionName() string {
	return e.Plural
}

// BasePath returns the route prefix this entity is served under.
func (e *EntityDefinition) BasePath() string {
	return "/api/" + e.Plural
}

// Normalize fills derivable fields after decoding.
func (e *EntityDefinition) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	if e.Plural == "" {
		e.Plural = e.Name + "s"
	}
}

// Validate checks the structural invariants of the definition. Every
// problem found is reported, not just the first.
func (e *EntityDefinition) Validate() error {
	var result error

	if e.Name == "" {
		result = multierr.Append(result, fmt.Errorf("entity has no name"))
	}
	if len(e.Schema) == 0 {
		result = multierr.Append(result, fmt.Errorf("entity '%s' declares no fields", e.Name))
	}

	seen := make(map[string]bool)
	for i := range e.Schema {
		field := &e.Schema[i]
		if seen[field.Name] {
			result = multierr.Append(result, fmt.Errorf("entity '%s' declares field '%s' more than once", e.Name, field.Name))
		}
		seen[field.Name] = true
		result = multierr.Append(result, validateField(field, field.Name))
	}

	for _, unique := range e.UniqueFields {
		field, ok := e.Schema.Field(unique)
		if !ok {
			result = multierr.Append(result, fmt.Errorf("unique field '%s' is not declared in the schema of entity '%s'", unique, e.Name))
			continue
		}
		switch field.Kind {
		case FieldArray, FieldObject:
			result = multierr.Append(result, fmt.Errorf("unique field '%s' of entity '%s' must be a scalar type", unique, e.Name))
		}
	}

	return result
}

func validateField(f *FieldDefinition, path string) error {
	var result error

	if f.Name == "" {
		result = multierr.Append(result, fmt.Errorf("field at '%s' has no name", path))
	}

	switch f.Kind {
	case FieldString:
		if f.MinLength != nil && *f.MinLength < 0 {
			result = multierr.Append(result, fmt.Errorf("field '%s' has a negative minLength", path))
		}
		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			result = multierr.Append(result, fmt.Errorf("field '%s' has minLength greater than maxLength", path))
		}
		if _, err := f.CompiledPattern(); err != nil {
			result = multierr.Append(result, err)
		}
		if f.DefaultValue != nil {
			if _, ok := f.DefaultValue.(string); !ok {
				result = multierr.Append(result, fmt.Errorf("field '%s' has a non-string default", path))
			}
		}

	case FieldNumber:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			result = multierr.Append(result, fmt.Errorf("field '%s' has min greater than max", path))
		}
		if f.DefaultValue != nil {
			if _, ok := ToFloat(f.DefaultValue); !ok {
				result = multierr.Append(result, fmt.Errorf("field '%s' has a non-numeric default", path))
			}
		}

	case FieldBoolean:
		if f.DefaultValue != nil {
			if _, ok := f.DefaultValue.(bool); !ok {
				result = multierr.Append(result, fmt.Errorf("field '%s' has a non-boolean default", path))
			}
		}

	case FieldDate:
		if f.DefaultValue != nil {
			if !isDateValue(f.DefaultValue) {
				result = multierr.Append(result, fmt.Errorf("field '%s' has a default that is not an ISO-8601 date-time", path))
			}
		}

	case FieldEnum:
		if len(f.Values) == 0 {
			result = multierr.Append(result, fmt.Errorf("enum field '%s' declares no values", path))
		}
		// An enum default must be a member of the declared value set.
		if f.DefaultValue != nil && !containsValue(f.Values, f.DefaultValue) {
			result = multierr.Append(result, fmt.Errorf("default for enum field '%s' is not in its value set", path))
		}

	case FieldArray:
		if f.Items == nil {
			result = multierr.Append(result, fmt.Errorf("array field '%s' declares no item type", path))
		} else {
			itemPath := path + "[]"
			if f.Items.Name == "" {
				f.Items.Name = f.Name
			}
			result = multierr.Append(result, validateField(f.Items, itemPath))
		}

	case FieldObject:
		if len(f.Fields) == 0 {
			result = multierr.Append(result, fmt.Errorf("object field '%s' declares no nested fields", path))
		}
		nested := make(map[string]bool)
		for i := range f.Fields {
			child := &f.Fields[i]
			if nested[child.Name] {
				result = multierr.Append(result, fmt.Errorf("object field '%s' declares field '%s' more than once", path, child.Name))
			}
			nested[child.Name] = true
			result = multierr.Append(result, validateField(child, path+"."+child.Name))
		}

	default:
		result = multierr.Append(result, fmt.Errorf("field '%s' has unknown type '%s'", path, f.Kind))
	}

	return result
}

func containsValue(values []interface{}, candidate interface{}) bool {
	for _, v := range values {
		if ValuesEqual(v, candidate) {
			return true
		}
	}
	return false
}

// ValuesEqual compares enum members, treating all numeric representations
// as the same value (YAML decodes 1 as int, JSON as float64).
func ValuesEqual(a, b interface{}) bool {
	if af, ok := ToFloat(a); ok {
		if bf, ok := ToFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isDateValue(v interface{}) bool {
	switch d := v.(type) {
	case time.Time:
		return true
	case string:
		_, err := time.Parse(time.RFC3339, d)
		return err == nil
	}
	return false
}
