package agent

import (
	"context"

	"github.com/hrygo/gridiron/ai/core/llm"
)

// Tool is a function the LLM may call during the ReAct loop.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool's arguments.
	Parameters() *llm.JSONSchema
	// Run executes the tool with the raw JSON arguments chosen by the model.
	Run(ctx context.Context, input string) (string, error)
}

// NativeTool implements Tool with direct function execution.
type NativeTool struct {
	execute     func(ctx context.Context, input string) (string, error)
	params      *llm.JSONSchema
	name        string
	description string
}

// NewNativeTool creates a new NativeTool.
func NewNativeTool(
	name string,
	description string,
	execute func(ctx context.Context, input string) (string, error),
	parameters *llm.JSONSchema,
) Tool {
	if parameters == nil {
		parameters = llm.ObjectSchema(nil)
	}
	return &NativeTool{
		name:        name,
		description: description,
		execute:     execute,
		params:      parameters,
	}
}

// Name returns the tool name.
func (t *NativeTool) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *NativeTool) Description() string {
	return t.description
}

// Parameters returns the JSON Schema for parameters.
func (t *NativeTool) Parameters() *llm.JSONSchema {
	return t.params
}

// Run executes the tool.
func (t *NativeTool) Run(ctx context.Context, input string) (string, error) {
	return t.execute(ctx, input)
}

// Descriptors converts tools into the form the LLM service sends to the provider.
func Descriptors(tools []Tool) []llm.ToolDescriptor {
	out := make([]llm.ToolDescriptor, len(tools))
	for i, t := range tools {
		out[i] = llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters().String(),
		}
	}
	return out
}
