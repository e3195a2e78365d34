package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/scandoc/invoice-ocr/constants"
)

// BuildInvoiceJSONSchema describes the structured-fields object the model is
// asked for. The schema is deliberately permissive: every value may be a
// scalar, a list (line-item fields), or null, because the object is
// untrusted input and coercion must stay total.
func BuildInvoiceJSONSchema() map[string]any {
	loose := map[string]any{
		"type": []string{"string", "number", "array", "null"},
	}
	props := map[string]any{}
	for _, k := range constants.FieldKeys {
		props[k] = loose
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		// The model sometimes adds commentary keys; they are ignored, not errors.
		"additionalProperties": true,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
