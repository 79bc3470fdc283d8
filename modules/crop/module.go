// Package crop cuts a normalized rectangle out of its input.
package crop

import (
	"context"
	"math"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// DefaultSize is the output edge when the input has no size yet.
const DefaultSize = 256

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the Crop parameters. Quad is x0, y0, x1, y1 in the unit square.
type Params struct {
	Quad []float64 `cty:"quad"`
}

func decode(c *evalctx.Context, e *evalctx.Evaluation) (Params, bool) {
	p := Params{Quad: []float64{0, 0, 1, 1}}
	if err := e.Params.Decode(&p); err != nil {
		c.Log().Warn("Invalid Crop parameters.", "node", e.Target, "error", err)
		return p, false
	}
	if len(p.Quad) != 4 {
		c.Log().Warn("Crop quad needs four values.", "node", e.Target, "quad", p.Quad)
		return p, false
	}
	return p, true
}

// Region is the source rectangle selected by the quad.
func (p Params) Region() gpu.Region {
	return gpu.Region{
		X0: math.Min(p.Quad[0], p.Quad[2]),
		Y0: math.Min(p.Quad[1], p.Quad[3]),
		X1: math.Max(p.Quad[0], p.Quad[2]),
		Y1: math.Max(p.Quad[1], p.Quad[3]),
	}
}

// Evaluate sizes the output to the cropped part of the input. The editor
// pass shows the whole input instead.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	p, ok := decode(c, e)
	if !ok {
		return status.Err
	}
	w, h := DefaultSize, DefaultSize
	if iw, ih, st := c.GetEvaluationSize(e.Input(0)); st == status.Ok {
		if e.UIPass {
			w, h = iw, ih
		} else {
			w = max(1, int(float64(iw)*math.Abs(p.Quad[2]-p.Quad[0])))
			h = max(1, int(float64(ih)*math.Abs(p.Quad[3]-p.Quad[1])))
		}
	}
	c.SetEvaluationPersistent(e.Target, true)
	return c.SetEvaluationSize(e.Target, w, h)
}

// Kernel draws the quad of the input, or all of it in the editor pass.
func Kernel(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) error {
	region := gpu.Region{}
	if !e.UIPass {
		if p, ok := decode(c, e); ok {
			region = p.Region()
		}
	}
	return c.Composite(e, region)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindCrop, Evaluate: Evaluate, Kernel: Kernel, Params: Params{}})
}
