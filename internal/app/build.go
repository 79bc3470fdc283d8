package app

import (
	"context"
	"fmt"

	"github.com/vk/evalgraph/internal/config"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/params"
	"github.com/vk/evalgraph/internal/registry"
)

// Build adds every node of model to ev, wires the inputs and validates
// parameters against the registered kinds. Nodes are added in model order
// so their indices are stable across runs of the same files.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, ev *evaluator.Evaluator) error {
	logger := ctxlog.FromContext(ctx)
	indices := make(map[string]int, len(model.Nodes))

	for _, cn := range model.Nodes {
		kind, err := node.ParseKind(cn.Kind)
		if err != nil {
			return fmt.Errorf("%s: node '%s': %w", cn.Source, cn.Name, err)
		}
		if len(cn.Inputs) > kind.Arity() {
			return fmt.Errorf("%s: node '%s' declares %d inputs but %s accepts %d", cn.Source, cn.Name, len(cn.Inputs), kind, kind.Arity())
		}
		n, err := ev.AddNode(kind, cn.Name, params.New(cn.Parameters))
		if err != nil {
			return fmt.Errorf("%s: %w", cn.Source, err)
		}
		indices[cn.Name] = n.Index
		logger.Debug("Node added.", "node", n.String())
	}

	for _, cn := range model.Nodes {
		dst := indices[cn.Name]
		for slot, in := range cn.Inputs {
			if in == "" {
				continue
			}
			src, ok := indices[in]
			if !ok {
				return fmt.Errorf("%s: node '%s' input %d references unknown node '%s'", cn.Source, cn.Name, slot, in)
			}
			if err := ev.Connect(dst, slot, src); err != nil {
				return fmt.Errorf("%s: connecting '%s' to '%s': %w", cn.Source, in, cn.Name, err)
			}
		}
	}

	if err := reg.Validate(ctx, ev.Graph().Nodes()); err != nil {
		return err
	}
	logger.Debug("Graph built.", "nodes", ev.Graph().Len())
	return nil
}
