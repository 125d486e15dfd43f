package validation

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"crudforge/src/apperrors"
	"crudforge/src/schema"
)

// Validator checks an input payload against a schema and returns the
// cleaned document (defaults applied, date strings parsed) on success.
type Validator func(input map[string]interface{}) (map[string]interface{}, error)

// BuildFull compiles the creation validator: every required field must be
// present, declared defaults fill missing optional fields, and unknown
// fields are rejected.
func BuildFull(s schema.SchemaDefinition) Validator {
	return func(input map[string]interface{}) (map[string]interface{}, error) {
		c := newCollector()
		out := make(map[string]interface{}, len(s))

		for i := range s {
			field := &s[i]
			value, present := input[field.Name]
			if !present || value == nil {
				if field.DefaultValue != nil {
					out[field.Name] = validateValue(field, field.DefaultValue, field.Name, c)
					continue
				}
				if field.Required {
					c.add(field.Name, "is required")
				}
				continue
			}
			out[field.Name] = validateValue(field, value, field.Name, c)
		}

		rejectUnknownFields(s, input, c)

		if c.failed() {
			return nil, c.toError()
		}
		return out, nil
	}
}

// BuildPartial compiles the update/filter validator: every field becomes
// optional, but a present field must satisfy all of its declared
// constraints. No defaults are applied.
func BuildPartial(s schema.SchemaDefinition) Validator {
	return func(input map[string]interface{}) (map[string]interface{}, error) {
		c := newCollector()
		out := make(map[string]interface{}, len(input))

		for i := range s {
			field := &s[i]
			value, present := input[field.Name]
			if !present || value == nil {
				continue
			}
			out[field.Name] = validateValue(field, value, field.Name, c)
		}

		rejectUnknownFields(s, input, c)

		if c.failed() {
			return nil, c.toError()
		}
		return out, nil
	}
}

func rejectUnknownFields(s schema.SchemaDefinition, input map[string]interface{}, c *collector) {
	for name := range input {
		if _, ok := s.Field(name); !ok {
			c.add(name, "is not a declared field")
		}
	}
}

// validateValue checks one value against its field definition and returns
// the normalized value. Every violated constraint is recorded, not just
// the first one.
func validateValue(f *schema.FieldDefinition, value interface{}, path string, c *collector) interface{} {
	switch f.Kind {
	case schema.FieldString:
		str, ok := value.(string)
		if !ok {
			c.add(path, "must be a string")
			return value
		}
		length := utf8.RuneCountInString(str)
		if f.MinLength != nil && length < *f.MinLength {
			c.add(path, fmt.Sprintf("must be at least %d characters long", *f.MinLength))
		}
		if f.MaxLength != nil && length > *f.MaxLength {
			c.add(path, fmt.Sprintf("must be at most %d characters long", *f.MaxLength))
		}
		if re, err := f.CompiledPattern(); err == nil && re != nil && !re.MatchString(str) {
			c.add(path, fmt.Sprintf("must match pattern %s", f.Pattern))
		}
		return str

	case schema.FieldNumber:
		num, ok := schema.ToFloat(value)
		if !ok {
			c.add(path, "must be a number")
			return value
		}
		if f.Integer && num != math.Trunc(num) {
			c.add(path, "must be an integer")
		}
		if f.Min != nil && num < *f.Min {
			c.add(path, fmt.Sprintf("must be greater than or equal to %v", *f.Min))
		}
		if f.Max != nil && num > *f.Max {
			c.add(path, fmt.Sprintf("must be less than or equal to %v", *f.Max))
		}
		return num

	case schema.FieldBoolean:
		b, ok := value.(bool)
		if !ok {
			c.add(path, "must be a boolean")
			return value
		}
		return b

	case schema.FieldDate:
		switch d := value.(type) {
		case time.Time:
			return d
		case string:
			parsed, err := time.Parse(time.RFC3339, d)
			if err != nil {
				c.add(path, "must be an ISO-8601 date-time")
				return value
			}
			return parsed
		default:
			c.add(path, "must be an ISO-8601 date-time")
			return value
		}

	case schema.FieldEnum:
		for _, member := range f.Values {
			if schema.ValuesEqual(member, value) {
				return value
			}
		}
		c.add(path, fmt.Sprintf("must be one of %v", f.Values))
		return value

	case schema.FieldArray:
		items, ok := value.([]interface{})
		if !ok {
			c.add(path, "must be an array")
			return value
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = validateValue(f.Items, item, fmt.Sprintf("%s[%d]", path, i), c)
		}
		return out

	case schema.FieldObject:
		obj, ok := value.(map[string]interface{})
		if !ok {
			c.add(path, "must be an object")
			return value
		}
		// A present object is validated against its nested schema as a
		// full sub-schema: required nested fields apply and defaults fill
		// missing optional ones.
		out := make(map[string]interface{}, len(f.Fields))
		for i := range f.Fields {
			nested := &f.Fields[i]
			nestedPath := path + "." + nested.Name
			nestedValue, present := obj[nested.Name]
			if !present || nestedValue == nil {
				if nested.DefaultValue != nil {
					out[nested.Name] = validateValue(nested, nested.DefaultValue, nestedPath, c)
					continue
				}
				if nested.Required {
					c.add(nestedPath, "is required")
				}
				continue
			}
			out[nested.Name] = validateValue(nested, nestedValue, nestedPath, c)
		}
		for name := range obj {
			if _, ok := f.Fields.Field(name); !ok {
				c.add(path+"."+name, "is not a declared field")
			}
		}
		return out

	default:
		c.add(path, fmt.Sprintf("has unsupported type '%s'", f.Kind))
		return value
	}
}

// collector accumulates violations per field path.
type collector struct {
	violations map[string][]string
	order      []string
}

func newCollector() *collector {
	return &collector{violations: make(map[string][]string)}
}

func (c *collector) add(path, message string) {
	if _, seen := c.violations[path]; !seen {
		c.order = append(c.order, path)
	}
	c.violations[path] = append(c.violations[path], message)
}

func (c *collector) failed() bool {
	return len(c.violations) > 0
}

func (c *collector) toError() error {
	return apperrors.NewValidationError(
		fmt.Sprintf("validation failed for %d field(s)", len(c.violations)),
		c.violations,
	)
}
