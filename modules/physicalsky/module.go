// Package physicalsky declares the cube map of an analytic sky.
package physicalsky

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

// Params are the PhysicalSky parameters.
type Params struct {
	Size int `cty:"size"`
}

// Evaluate declares a single-mip cube of 256<<size.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil || p.Size < 0 {
		c.Log().Warn("Invalid PhysicalSky parameters.", "node", e.Target, "size", p.Size, "error", err)
		return status.Err
	}
	return c.SetEvaluationCubeSize(e.Target, baseSize<<p.Size, 1)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindPhysicalSky, Evaluate: Evaluate, Params: Params{}})
}
