// Package schema compiles and validates the JSON Schemas used for
// structured output and tool-input validation.
package schema

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

// Validator wraps a compiled JSON Schema.
type Validator struct {
	schema   *jsonschema.Schema
	document map[string]any
}

// Compile builds a Validator from a JSON Schema document.
func Compile(document map[string]any) (*Validator, error) {
	// Round-trip through encoding/json so the compiler sees plain
	// decoded values (json.Number and friends behave uniformly).
	raw, err := json.Marshal(document)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidSchema, "encoding schema", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidSchema, "decoding schema", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidSchema, "adding schema resource", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidSchema, "compiling schema", err)
	}
	return &Validator{schema: compiled, document: document}, nil
}

// JSONSchema returns the source schema document.
func (v *Validator) JSONSchema() map[string]any { return v.document }

// Validate checks value against the schema, returning a canonical
// schema_validation error on failure.
func (v *Validator) Validate(value any) error {
	// The validator walks plain decoded JSON; normalize Go values the
	// same way the schema document was.
	raw, err := json.Marshal(value)
	if err != nil {
		return llmerrors.Wrap(llmerrors.KindSchemaValidation, "encoding value", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return llmerrors.Wrap(llmerrors.KindSchemaValidation, "decoding value", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return llmerrors.Wrap(llmerrors.KindSchemaValidation, "value does not match schema", err)
	}
	return nil
}

// Validate compiles document and checks value in one step. Callers doing
// repeated validation should Compile once instead.
func Validate(document map[string]any, value any) error {
	validator, err := Compile(document)
	if err != nil {
		return err
	}
	return validator.Validate(value)
}
