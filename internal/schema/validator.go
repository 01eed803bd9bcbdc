package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// RootField names violations that belong to the arguments object itself.
const RootField = "(root)"

// Violation is one schema failure attributed to a top-level argument.
type Violation struct {
	Field   string // argument name, or RootField for document-level failures
	Type    string // gojsonschema error type, e.g. "required", "invalid_type"
	Message string
}

// Validator checks JSON arguments against JSON schemas.
// It caches compiled schemas for performance.
type Validator struct {
	cache sync.Map // map[string]*gojsonschema.Schema
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Check validates argsJSON against schemaData and returns every violation.
// The schema can be a map[string]any, a string (JSON), or a struct.
// A non-nil error means the check itself could not run (bad schema or a
// document that is not JSON); violations are never reported as errors.
func (v *Validator) Check(schemaData any, argsJSON string) ([]Violation, error) {
	schema, err := v.compile(schemaData)
	if err != nil {
		return nil, fmt.Errorf("invalid schema definition: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return nil, fmt.Errorf("validation execution failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, Violation{
			Field:   fieldOf(desc),
			Type:    desc.Type(),
			Message: desc.Description(),
		})
	}
	return violations, nil
}

// fieldOf names the top-level property a result error belongs to.
// Missing required properties are reported against the parent object, so the
// property name is taken from the error details instead.
func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if property, ok := desc.Details()["property"].(string); ok {
			return property
		}
	}
	field := desc.Field()
	if field == "" {
		return RootField
	}
	// Nested paths collapse onto their top-level argument.
	if i := strings.IndexByte(field, '.'); i > 0 && field != RootField {
		field = field[:i]
	}
	return field
}

func (v *Validator) compile(schemaData any) (*gojsonschema.Schema, error) {
	var jsonBytes []byte
	switch s := schemaData.(type) {
	case string:
		jsonBytes = []byte(s)
	case json.RawMessage:
		jsonBytes = s
	default:
		b, err := json.Marshal(schemaData)
		if err != nil {
			return nil, err
		}
		jsonBytes = b
	}
	key := string(jsonBytes)

	if val, ok := v.cache.Load(key); ok {
		return val.(*gojsonschema.Schema), nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, schema)
	return schema, nil
}
