// Package thumbnail renders a 256x256 preview of its input for the
// thumbnail sink.
package thumbnail

import (
	"context"

	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// Size is the edge length of every thumbnail.
const Size = 256

// Module implements the registry.Module interface for this package.
type Module struct{}

// Evaluate stores a thumbnail named after the node on a forced pass.
func Evaluate(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
	if !e.Forced {
		return status.Ok
	}
	img, st := c.Evaluate(ctx, e.Input(0), Size, Size)
	if st != status.Ok {
		return st
	}
	return c.SetThumbnailImage(ctx, e.Name, img)
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Entry{Kind: node.KindThumbnail, Evaluate: Evaluate})
}
