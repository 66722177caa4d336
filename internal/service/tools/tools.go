// Package tools provides the tool execution registry consumed by the
// assistant's tool-call loop.
package tools

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerFunc executes one tool invocation. Handlers that operate on
// organization data receive the organization id; knowledge handlers
// typically ignore it.
type HandlerFunc func(ctx context.Context, orgID uuid.UUID, params map[string]interface{}) (string, error)

// Registry maps tool names to handlers. Unknown tools produce a structured
// error string rather than an error: the tool-call loop feeds it back to
// the model as a normal tool result.
type Registry struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Register adds a handler for a tool name, replacing any existing one.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.handlers[name] = fn
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Execute runs a named tool.
func (r *Registry) Execute(ctx context.Context, name string, orgID uuid.UUID, params map[string]interface{}) (string, error) {
	fn, ok := r.handlers[name]
	if !ok {
		msg, _ := json.Marshal(map[string]string{"error": "tool not available: " + name})
		return string(msg), nil
	}
	return fn(ctx, orgID, params)
}
