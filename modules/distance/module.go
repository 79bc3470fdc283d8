// Package distance computes a distance field of its input with a jump
// flooding pass count derived from the input width.
package distance

import (
	"context"
	"math/bits"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the Distance parameters. PassCount is derived, not edited.
type Params struct {
	PassCount int `cty:"pass_count"`
}

// PassCount is floor(log2(width)) + 3.
func PassCount(width int) int {
	return bits.Len(uint(width)) + 2
}

// Evaluate writes the pass count back when the input has a size.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	w, _, st := c.GetEvaluationSize(e.Input(0))
	if st != status.Ok {
		return status.Ok
	}
	return c.SetParameter(e.Target, "pass_count", PassCount(w))
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindDistance, Evaluate: Evaluate, Params: Params{}})
}
