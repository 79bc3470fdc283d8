// Package gltfread loads a glTF scene into its target.
package gltfread

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

// Params are the GLTFRead parameters.
type Params struct {
	Filename string `cty:"filename"`
}

// Evaluate sets up world-space drawing and reloads the scene when the
// filename no longer matches the loaded one.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil {
		c.Log().Warn("Invalid GLTFRead parameters.", "node", e.Target, "error", err)
		return status.Err
	}
	c.EnableDepthBuffer(e.Target, true)
	c.EnableFrameClear(e.Target, true)
	c.SetVertexSpace(e.Target, gpu.VertexSpaceWorld)

	if p.Filename == "" || p.Filename == c.GetEvaluationSceneName(e.Target) {
		return status.Ok
	}
	if st := c.GLTFReadAsync(e.Target, p.Filename); st != status.Ok {
		return st
	}
	return c.SetProcessing(e.Target, 1)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindGLTFRead, Evaluate: Evaluate, Params: Params{}})
}
