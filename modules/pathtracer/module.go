// Package pathtracer renders the scene of its input progressively.
package pathtracer

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/pathtrace"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/resource"
	"github.com/vk/evalgraph/internal/status"
)

// DefaultSize is the edge of the rendered image.
const DefaultSize = 1024

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the PathTracer parameters.
type Params struct {
	Size int `cty:"size"`
}

// sourced is implemented by renderers that know what they render.
type sourced interface {
	Scene() *pathtrace.Scene
	Size() (int, int)
}

// Evaluate attaches a renderer when there is none or when the input scene
// or size changed, and restarts accumulation. The node stays in the
// rendering state until the image converges.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	source := e.Input(0)
	if source == node.NoInput {
		return status.Ok
	}
	p := Params{Size: DefaultSize}
	if err := e.Params.Decode(&p); err != nil || p.Size <= 0 {
		c.Log().Warn("Invalid PathTracer parameters.", "node", e.Target, "size", p.Size, "error", err)
		return status.Err
	}
	h, st := c.GetEvaluationScene(source)
	if st != status.Ok {
		return status.Err
	}
	if h == nil {
		return status.Ok
	}
	r, st := c.GetEvaluationRenderer(e.Target)
	if st != status.Ok {
		return status.Err
	}
	if r == nil || stale(c, r, source, p.Size) {
		if st := c.SetEvaluationSize(e.Target, p.Size, p.Size); st != status.Ok {
			return st
		}
		if st := c.InitRenderer(e.Target, h); st != status.Ok {
			return st
		}
	}
	return c.UpdateRenderer(e.Target)
}

// stale reports whether r was built for another scene or size.
func stale(c *evalctx.Context, r resource.Renderer, source, size int) bool {
	sr, ok := r.(sourced)
	if !ok {
		return false
	}
	if w, h := sr.Size(); w != size || h != size {
		return true
	}
	rt, st := c.GetEvaluationRTScene(source)
	return st == status.Ok && rt != sr.Scene()
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindPathTracer, Evaluate: Evaluate, Params: Params{}})
}
