// Package equirect converts between equirectangular images and cube maps.
package equirect

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

const baseSize = 256

// Conversion directions.
const (
	ModeToCube = iota
	ModeToEquirect
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the EquirectConverter parameters.
type Params struct {
	Mode int `cty:"mode"`
	Size int `cty:"size"`
}

// Evaluate declares a cube when converting to a cube map and a square flat
// image otherwise.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil || p.Size < 0 {
		c.Log().Warn("Invalid EquirectConverter parameters.", "node", e.Target, "size", p.Size, "error", err)
		return status.Err
	}
	size := baseSize << p.Size
	if p.Mode == ModeToCube {
		return c.SetEvaluationCubeSize(e.Target, size, 1)
	}
	return c.SetEvaluationSize(e.Target, size, size)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindEquirectConverter, Evaluate: Evaluate, Params: Params{}})
}
