package testutil

import (
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
)

// SimpleModule is a test helper for registering a single kind from
// closures.
type SimpleModule struct {
	Kind     node.Kind
	Evaluate registry.Handler
	Kernel   registry.Kernel
	Params   any
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: m.Kind, Evaluate: m.Evaluate, Kernel: m.Kernel, Params: m.Params})
}
