// Package paint3d projects strokes onto the scene of its input. The editor
// pass paints in world space over its own previous result; export passes
// unwrap to UV space.
package paint3d

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

// Evaluate switches the render state between painting and unwrapping and
// shares the input scene.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	t := e.Target
	if e.UIPass {
		c.SetBlendingMode(t, gpu.BlendOne, gpu.BlendZero)
		c.OverrideInput(t, 0, t)
		c.SetVertexSpace(t, gpu.VertexSpaceWorld)
		c.EnableDepthBuffer(t, true)
		c.EnableFrameClear(t, true)
	} else {
		c.SetBlendingMode(t, gpu.BlendOne, gpu.BlendOneMinusSrcAlpha)
		c.OverrideInput(t, 0, node.NoInput)
		c.SetVertexSpace(t, gpu.VertexSpaceUV)
		c.EnableDepthBuffer(t, false)
		c.EnableFrameClear(t, false)
	}

	if h, st := c.GetEvaluationScene(e.Input(0)); st == status.Ok && h != nil {
		return c.SetEvaluationScene(t, h)
	}
	return status.Ok
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindPaint3D, Evaluate: Evaluate})
}
