package app

import (
	"context"

	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/gpu/ebitengpu"
	"github.com/vk/evalgraph/internal/graph"
	"github.com/vk/evalgraph/internal/jobs"
	"github.com/vk/evalgraph/internal/resource"
)

// newEvaluator creates an empty evaluation session on the configured
// device. Closing the evaluator releases the targets and stops the workers.
func (a *App) newEvaluator(ctx context.Context) *evaluator.Evaluator {
	var device gpu.Device = gpu.NewCPUDevice()
	if a.config.Device == DeviceEbiten {
		device = ebitengpu.New()
	}

	opts := evalctx.DefaultOptions()
	opts.RendererSize = a.config.RendererSize
	session := evalctx.New(ctx,
		resource.New(device),
		dirty.New(),
		jobs.New(ctx, a.config.WorkerCount),
		evalctx.DefaultCollaborators(codec.FileThumbnails{Dir: a.config.ThumbnailDir}),
		opts,
	)
	return evaluator.New(ctx, graph.New(), a.registry, session)
}
