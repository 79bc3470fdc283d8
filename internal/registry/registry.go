package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/status"
)

// Handler is the size/state callback of a node kind.
type Handler func(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status

// Kernel is the compute step run after the callback when the node is dirty
// and not processing.
type Kernel func(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) error

// Entry binds a kind to its callbacks.
type Entry struct {
	Kind     node.Kind
	Evaluate Handler
	// Kernel is optional; kinds without one use the default composite.
	Kernel Kernel
	// Params is a zero value of the kind's parameter struct. When set,
	// Validate checks graph parameters against its `cty` tags.
	Params any
}

// Module is the interface that all node modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the entries of a single application instance.
type Registry struct {
	entries map[node.Kind]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[node.Kind]*Entry)}
}

// Register adds e. Registering an invalid kind, a nil handler or the same
// kind twice is a programming error and panics.
func (r *Registry) Register(e Entry) {
	if !e.Kind.Valid() {
		panic(fmt.Sprintf("registry: invalid kind %s", e.Kind))
	}
	if e.Evaluate == nil {
		panic(fmt.Sprintf("registry: kind %s registered without a handler", e.Kind))
	}
	if _, dup := r.entries[e.Kind]; dup {
		panic(fmt.Sprintf("registry: kind %s registered twice", e.Kind))
	}
	r.entries[e.Kind] = &e
}

// RegisterAll registers every module in order.
func (r *Registry) RegisterAll(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Lookup returns the entry for kind.
func (r *Registry) Lookup(kind node.Kind) (*Entry, bool) {
	e, ok := r.entries[kind]
	return e, ok
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []node.Kind {
	out := make([]node.Kind, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
