package llm

import (
	"encoding/json"
	"slices"
)

// JSONSchema implements json.Marshaler for OpenAI's JSON Schema format.
// The alias type prevents infinite recursion during marshaling.
type JSONSchema struct {
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

// MarshalJSON implements json.Marshaler for JSONSchema.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type alias JSONSchema
	return json.Marshal((*alias)(s))
}

// String renders the schema for ToolDescriptor.Parameters.
func (s *JSONSchema) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return `{"type":"object"}`
	}
	return string(b)
}

// ObjectSchema builds an object schema from properties; every property is required.
func ObjectSchema(props map[string]*JSONSchema) *JSONSchema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	slices.Sort(required)
	return &JSONSchema{Type: "object", Properties: props, Required: required}
}
