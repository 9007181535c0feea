package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Input represents input data for tool execution
type Input struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// Result represents the result of tool execution
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Stats   Stats          `json:"stats"`
}

// Stats tracks tool execution statistics
type Stats struct {
	ExecutionTime time.Duration `json:"execution_time"`
}

// Schema defines the JSON schema for tool input validation
type Schema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// Tool defines the interface that all tools must implement
type Tool interface {
	Name() string
	Description() string
	Schema() *Schema
	Execute(ctx context.Context, input *Input) (*Result, error)
}

// Registry manages tool registration and execution
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all registered tools ordered by name
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Execute runs a tool by name with the given input
func (r *Registry) Execute(ctx context.Context, input *Input) (*Result, error) {
	tool, err := r.Get(input.Name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	result.Stats.ExecutionTime = time.Since(start)
	return result, nil
}
