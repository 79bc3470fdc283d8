// Package reactiondiffusion declares the square buffer of a reaction
// diffusion simulation.
package reactiondiffusion

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

const baseSize = 256

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the ReactionDiffusion parameters.
type Params struct {
	Boost     float64 `cty:"boost"`
	Divisor   float64 `cty:"divisor"`
	ColorStep float64 `cty:"color_step"`
	PassCount int     `cty:"pass_count"`
	Size      int     `cty:"size"`
}

func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil || p.Size < 0 {
		c.Log().Warn("Invalid ReactionDiffusion parameters.", "node", e.Target, "size", p.Size, "error", err)
		return status.Err
	}
	size := baseSize << p.Size
	return c.SetEvaluationSize(e.Target, size, size)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindReactionDiffusion, Evaluate: Evaluate, Params: Params{}})
}
