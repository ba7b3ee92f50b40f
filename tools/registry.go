package tools

import (
	"fmt"
	"sort"
)

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates a registry holding the given tools. Names must be unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	registry := make(Registry, len(tools))
	for _, tool := range tools {
		if _, exists := registry[tool.Name()]; exists {
			return nil, fmt.Errorf("tool %q registered twice", tool.Name())
		}
		registry[tool.Name()] = tool
	}
	return &registry, nil
}

// GetTools returns all tools in the registry, ordered by name
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}
