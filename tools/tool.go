package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Tool describes a function the model may call. The analysis clients use
// tools only to force structured output, so nothing is ever executed.
type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
}

type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}
