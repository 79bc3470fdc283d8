// Package imagewrite exports its input to an image file when the node is
// forced.
package imagewrite

import (
	"context"

	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Size modes.
const (
	ModeFixed = iota
	ModeKeepWidth
	ModeKeepHeight
)

const (
	defaultQuality = 90
	defaultSize    = 1024
)

// Params are the ImageWrite parameters. Format indexes codec.Format.
type Params struct {
	Filename string `cty:"filename"`
	Format   int    `cty:"format"`
	Quality  int    `cty:"quality"`
	Width    int    `cty:"width"`
	Height   int    `cty:"height"`
	Mode     int    `cty:"mode"`
}

func defaults() Params {
	return Params{
		Format:  int(codec.FormatPNG),
		Quality: defaultQuality,
		Width:   defaultSize,
		Height:  defaultSize,
	}
}

// Evaluate keeps width and height in step with the input aspect ratio and
// writes the file on a forced pass.
func Evaluate(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	p := defaults()
	if err := e.Params.Decode(&p); err != nil {
		c.Log().Warn("Invalid ImageWrite parameters.", "node", e.Target, "error", err)
		return status.Err
	}
	format := codec.Format(p.Format)
	if p.Format < int(codec.FormatJPG) || p.Format > int(codec.FormatTIFF) {
		c.Log().Warn("Unknown image format.", "node", e.Target, "format", p.Format)
		return status.Err
	}

	source := e.Input(0)
	if source == node.NoInput {
		return status.Ok
	}
	if p.Mode != ModeFixed {
		if iw, ih, st := c.GetEvaluationSize(source); st == status.Ok {
			p.Width, p.Height = fitRatio(p, iw, ih)
			c.SetParameter(e.Target, "width", p.Width)
			c.SetParameter(e.Target, "height", p.Height)
		}
	}
	if !e.Forced {
		return status.Ok
	}
	if p.Filename == "" {
		c.Log().Warn("ImageWrite has no filename.", "node", e.Target)
		return status.Err
	}

	img, st := c.Evaluate(ctx, source, p.Width, p.Height)
	if st != status.Ok {
		return st
	}
	if st := c.WriteImage(ctx, p.Filename, img, format, p.Quality); st != status.Ok {
		return st
	}
	c.Log().Info("Image saved.", "node", e.Target, "path", p.Filename, "format", format.String())
	return status.Ok
}

// fitRatio derives the output size from the input aspect ratio, keeping
// the input width in ModeKeepWidth and the input height otherwise.
func fitRatio(p Params, iw, ih int) (int, int) {
	ratio := float64(iw) / float64(ih)
	if p.Mode == ModeKeepWidth {
		return iw, int(float64(iw) / ratio)
	}
	return int(float64(p.Height) * ratio), ih
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindImageWrite, Evaluate: Evaluate, Params: Params{}})
}
