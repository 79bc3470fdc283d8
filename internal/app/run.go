package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/graph"
	"github.com/vk/evalgraph/internal/preview"
	"github.com/vk/evalgraph/internal/statusfeed"
)

// Run builds the graph, evaluates it until it settles, writes its ImageWrite
// and Thumbnail nodes, and then the configured exports. With Preview set, passes are driven by the preview
// window until it is closed.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		err = errors.Join(err, a.closeHealthCheckServer())
	}()

	ev := a.newEvaluator(ctx)
	defer func() {
		err = errors.Join(err, ev.Close())
	}()
	if err := Build(ctx, a.model, a.registry, ev); err != nil {
		return fmt.Errorf("failed to build evaluation graph: %w", err)
	}

	pub, err := a.publisher(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, pub.Close())
	}()
	ev.Observe(func(ctx context.Context, r evaluator.PassReport) {
		event := statusfeed.Snapshot(ev, r)
		a.status.Store(&event)
		if err := pub.Publish(ctx, event); err != nil {
			a.logger.Warn("Failed to publish pass status.", "pass", r.Pass, "error", err)
		}
	})

	a.logger.Info("🚀 Starting evaluation...", "nodes", ev.Graph().Len(), "device", a.config.Device)
	if a.config.Preview {
		err = a.runPreview(ctx, ev)
	} else {
		err = a.runHeadless(ctx, ev)
	}
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if err := a.writeOutputs(ctx, ev); err != nil {
		return err
	}
	a.logger.Info("🏁 Evaluation finished.", "passes", ev.PassNumber(), "settled", ev.Settled())

	if err := a.export(ctx, ev); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// runHeadless settles the graph, pacing passes at the frame rate when one is
// configured.
func (a *App) runHeadless(ctx context.Context, ev *evaluator.Evaluator) error {
	if a.config.FrameRate <= 0 {
		_, err := ev.RunUntilSettled(ctx, a.config.MaxPasses)
		return err
	}

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FrameRate))
	defer ticker.Stop()
	for frame := 0; frame < a.config.MaxPasses; frame++ {
		if ev.Settled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := ev.Pass(ctx); err != nil {
			return err
		}
	}
	if ev.Settled() {
		return nil
	}
	return fmt.Errorf("after %d frames: %w", a.config.MaxPasses, evaluator.ErrNotSettled)
}

func (a *App) runPreview(ctx context.Context, ev *evaluator.Evaluator) error {
	target, err := a.previewTarget(ev.Graph())
	if err != nil {
		return err
	}
	n, _ := ev.Graph().Node(target)
	a.logger.Info("Opening preview window.", "node", n.String())
	return preview.Run(ctx, preview.NewDriver(ev, target), preview.Options{
		Title: "evalgraph: " + n.Name,
		TPS:   a.config.FrameRate,
	})
}

// previewTarget resolves PreviewNode, defaulting to the last node in
// evaluation order.
func (a *App) previewTarget(g *graph.Graph) (int, error) {
	if a.config.PreviewNode != "" {
		n, ok := g.Lookup(a.config.PreviewNode)
		if !ok {
			return 0, fmt.Errorf("preview node '%s': %w", a.config.PreviewNode, graph.ErrUnknownNode)
		}
		return n.Index, nil
	}
	order, err := g.Order()
	if err != nil {
		return 0, err
	}
	if len(order) == 0 {
		return 0, errors.New("nothing to preview: the graph is empty")
	}
	return order[len(order)-1], nil
}
