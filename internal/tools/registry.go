package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeanpaul/cursor-memory-mcp/internal/memory"
	"github.com/jeanpaul/cursor-memory-mcp/internal/schema"
)

// UnknownToolError is returned by Invoke for names that were never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "未知工具: " + e.Name
}

// Registry holds a fixed set of tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from tools. Names must be unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Descriptor().Name
		if name == "" {
			return nil, fmt.Errorf("tool has no name: %T", t)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns the descriptors of all tools in registration order.
func (r *Registry) List() []Descriptor {
	defs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Descriptor())
	}
	return defs
}

// Invoke runs the named tool with raw JSON arguments.
func (r *Registry) Invoke(ctx context.Context, name, args string) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{}, &UnknownToolError{Name: name}
	}
	return t.Execute(ctx, args)
}

// NewDefaultRegistry wires the create_cursor_memory tool to the OS filesystem.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	tool := NewCreateMemoryTool(
		memory.NewRequestValidator(schema.NewValidator()),
		memory.NewWriter(memory.WithLogger(logger)),
		logger,
	)
	// A single, statically named tool cannot collide.
	r, _ := NewRegistry(tool)
	return r
}
