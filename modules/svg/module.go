// Package svg rasterizes a vector file into its target.
package svg

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// DefaultDPI replaces any dpi of one or less.
const DefaultDPI = 96

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the SVG parameters.
type Params struct {
	Filename string  `cty:"filename"`
	DPI      float64 `cty:"dpi"`
}

func Evaluate(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil {
		c.Log().Warn("Invalid SVG parameters.", "node", e.Target, "error", err)
		return status.Err
	}
	if p.DPI <= 1 {
		p.DPI = DefaultDPI
		c.SetParameter(e.Target, "dpi", p.DPI)
	}
	if p.Filename == "" {
		return status.Ok
	}
	img, st := c.LoadSVG(ctx, p.Filename, p.DPI)
	if st != status.Ok {
		return st
	}
	return c.SetEvaluationImage(e.Target, img)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindSVG, Evaluate: Evaluate, Params: Params{}})
}
