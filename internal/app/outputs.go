package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/node"
)

// outputKinds write files or thumbnails, and only on a forced pass.
var outputKinds = map[node.Kind]bool{
	node.KindImageWrite: true,
	node.KindThumbnail:  true,
}

// writeOutputs forces every ImageWrite and Thumbnail node of a settled graph
// and settles it again, so each of them writes once. A node that is still
// failing afterwards is reported.
func (a *App) writeOutputs(ctx context.Context, ev *evaluator.Evaluator) error {
	var outputs []*node.Node
	for _, n := range ev.Graph().Nodes() {
		if outputKinds[n.Kind] {
			outputs = append(outputs, n)
		}
	}
	if len(outputs) == 0 {
		return nil
	}
	if a.config.Device == DeviceEbiten {
		a.logger.Warn("Output nodes are not written on the ebiten device.", "nodes", len(outputs))
		return nil
	}

	for _, n := range outputs {
		if err := ev.Force(n.Index); err != nil {
			return err
		}
	}
	a.logger.Debug("Writing output nodes.", "nodes", len(outputs))
	if _, err := ev.RunUntilSettled(ctx, a.config.MaxPasses); err != nil {
		return fmt.Errorf("writing output nodes: %w", err)
	}

	var errs []error
	for _, n := range outputs {
		if ev.Failed(n.Index) {
			errs = append(errs, fmt.Errorf("output node '%s' failed", n.Name))
		}
	}
	return errors.Join(errs...)
}
