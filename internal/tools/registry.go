package tools

import (
	"context"
	"log"
	"sort"
	"sync"

	"google.golang.org/genai"
)

// Registry holds the tools available to the model for a deployment.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool; a later registration with the same name wins.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declarations returns the function declarations in name order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	decls := make([]*genai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}

// Execute dispatches a function call. Failures are folded into the
// response map so the model can react instead of the turn aborting.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) map[string]any {
	t, ok := r.Get(name)
	if !ok {
		log.Printf("[Tools] unknown tool requested: %s", name)
		return map[string]any{"error": "unknown tool: " + name}
	}
	result, err := t.Execute(ctx, args)
	if err != nil {
		log.Printf("[Tools] %s failed: %v", name, err)
		return map[string]any{"error": err.Error()}
	}
	return result
}
