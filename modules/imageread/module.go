// Package imageread loads a flat image or the six faces of a cube map from
// disk into its target.
package imageread

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the ImageRead parameters. Filename wins over the cube faces.
type Params struct {
	Filename string `cty:"filename"`
	PosX     string `cty:"pos_x_filename"`
	NegX     string `cty:"neg_x_filename"`
	PosY     string `cty:"pos_y_filename"`
	NegY     string `cty:"neg_y_filename"`
	PosZ     string `cty:"pos_z_filename"`
	NegZ     string `cty:"neg_z_filename"`
}

// faces orders the face files by gpu face index.
func (p Params) faces() [6]string {
	var out [6]string
	out[gpu.FacePosX] = p.PosX
	out[gpu.FaceNegX] = p.NegX
	out[gpu.FacePosY] = p.PosY
	out[gpu.FaceNegY] = p.NegY
	out[gpu.FacePosZ] = p.PosZ
	out[gpu.FaceNegZ] = p.NegZ
	return out
}

// Evaluate starts a read only when the node's own parameters changed.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	if !e.ParameterDirty() {
		return status.Ok
	}
	var p Params
	if err := e.Params.Decode(&p); err != nil {
		c.Log().Warn("Invalid ImageRead parameters.", "node", e.Target, "error", err)
		return status.Err
	}
	c.SetEvaluationPersistent(e.Target, true)

	if p.Filename != "" {
		return load(c, e.Target, c.ReadImageAsync(e.Target, p.Filename, -1))
	}
	faces := p.faces()
	for _, f := range faces {
		if f == "" {
			return status.Ok
		}
	}
	return load(c, e.Target, c.ReadCubemapAsync(e.Target, faces))
}

func load(c *evalctx.Context, target int, dispatched status.Status) status.Status {
	if dispatched != status.Ok {
		return dispatched
	}
	return c.SetProcessing(target, 1)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindImageRead, Evaluate: Evaluate, Params: Params{}})
}
