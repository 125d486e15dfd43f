package validation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"crudforge/src/schema"
)

// CoerceQueryParameters converts raw query-string values into the type
// their schema declares, ahead of partial validation. Only fields declared
// number, boolean or date are coerced; string and enum fields, undeclared
// fields and values that do not parse are passed through unchanged. An
// empty string is never coerced.
func CoerceQueryParameters(s schema.SchemaDefinition, raw map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))

	for name, value := range raw {
		field, declared := s.Field(name)
		if !declared || value == "" {
			out[name] = value
			continue
		}

		switch field.Kind {
		case schema.FieldBoolean:
			if value == "true" {
				out[name] = true
			} else if value == "false" {
				out[name] = false
			} else {
				out[name] = value
			}

		case schema.FieldNumber:
			if num, ok := parseDecimal(value); ok {
				out[name] = num
			} else {
				out[name] = value
			}

		case schema.FieldDate:
			if parsed, err := time.Parse(time.RFC3339, value); err == nil {
				out[name] = parsed
			} else {
				out[name] = value
			}

		default:
			// string, enum, array and object filters stay textual and are
			// judged by the partial validator.
			out[name] = value
		}
	}

	return out
}

// parseDecimal accepts only finite base-10 numbers. ParseFloat alone would
// also take "Inf", "NaN" and hex-float spellings, which are not valid field
// values and must reach the validator as strings.
func parseDecimal(value string) (float64, bool) {
	if strings.ContainsAny(value, "xX") {
		return 0, false
	}
	num, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(num, 0) || math.IsNaN(num) {
		return 0, false
	}
	return num, true
}
