package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ValidationError reports a parameter that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ErrorName labels serialized validation failures in transcripts.
func (e *ValidationError) ErrorName() string { return "ValidationError" }

// FromStruct derives a JSON schema from a Go struct via reflection.
//
// Supported tags:
//   - json:"name"         parameter name
//   - json:",omitempty"   optional parameter
//   - jsonschema:"required,description=...,enum=a,enum=b,default=..."
//
// The result is the inline object schema handed to model providers.
func FromStruct(v any) (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	s := reflector.Reflect(v)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Providers reject draft metadata on tool schemas.
	delete(out, "$schema")
	delete(out, "$id")

	return out, nil
}

// ValidateParameters checks model-supplied parameters against an object
// schema: required fields must be present and typed fields must carry a
// compatible JSON type. Extra fields pass through untouched.
func ValidateParameters(params map[string]any, s map[string]any) error {
	for _, fieldName := range requiredFields(s) {
		if _, exists := params[fieldName]; !exists {
			return &ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
			}
		}
	}

	properties, _ := s["properties"].(map[string]any)

	for fieldName, value := range params {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue // Allow extra fields
		}

		propMap, ok := propSchema.(map[string]any)
		if !ok {
			continue
		}

		expectedType, _ := propMap["type"].(string)
		if !isValidType(value, expectedType) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", expectedType, value),
			}
		}
	}

	return nil
}

// requiredFields normalizes the two forms "required" takes: []string when a
// schema is hand-built in Go, []any after a JSON round trip.
func requiredFields(s map[string]any) []string {
	switch req := s["required"].(type) {
	case []string:
		return req
	case []any:
		fields := make([]string, 0, len(req))

		for _, r := range req {
			if name, ok := r.(string); ok {
				fields = append(fields, name)
			}
		}

		return fields
	default:
		return nil
	}
}

// isValidType checks if a value is valid according to the expected JSON
// schema type.
func isValidType(value any, expectedType string) bool {
	if value == nil {
		return true // nil is valid for any type
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling produces float64 for all numbers
			return v == float64(int64(v))
		}

		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}

		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true // Unknown types are assumed valid
	}
}
