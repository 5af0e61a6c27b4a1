package tools

import (
	"context"

	"github.com/rahul/creator/internal/store"
)

// Tool applies one kind of plan step to the workspace.
type Tool interface {
	Name() string
	Description() string // shown to the planner model alongside Parameters
	Parameters() map[string]any // JSON Schema for the step fields the tool reads
	// Execute applies step, whose Path has already been trimmed and resolved
	// to target inside the workspace.
	Execute(ctx context.Context, step store.Step, target string) error
}

// Registry maps step actions to the tools that carry them out.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}
