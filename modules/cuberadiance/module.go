// Package cuberadiance declares the cube map that holds the radiance or
// irradiance filtered form of its input.
package cuberadiance

import (
	"context"
	"math/bits"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

const baseSize = 128

// Filter modes.
const (
	ModeRadiance = iota
	ModeIrradiance
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the CubeRadiance parameters. Size is a power-of-two step over
// 128; zero follows the input width.
type Params struct {
	Mode        int `cty:"mode"`
	Size        int `cty:"size"`
	SampleCount int `cty:"sample_count"`
}

// Evaluate declares a cube target, with a full mip chain for irradiance.
func Evaluate(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	var p Params
	if err := e.Params.Decode(&p); err != nil || p.Size < 0 {
		c.Log().Warn("Invalid CubeRadiance parameters.", "node", e.Target, "size", p.Size, "error", err)
		return status.Err
	}
	size := baseSize << p.Size
	if p.Size == 0 {
		if w, _, st := c.GetEvaluationSize(e.Input(0)); st == status.Ok {
			size = w
		}
	}
	mips := 1
	if p.Mode != ModeRadiance {
		mips = bits.Len(uint(size))
	}
	return c.SetEvaluationCubeSize(e.Target, size, mips)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindCubeRadiance, Evaluate: Evaluate, Params: Params{}})
}
