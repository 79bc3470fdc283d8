package evaluator

import (
	"context"
	"fmt"

	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/jobs"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
)

// Pass runs one evaluation pass. It never blocks on jobs; the only error is
// a graph that cannot be ordered.
func (e *Evaluator) Pass(ctx context.Context) (PassReport, error) {
	report := PassReport{Pass: e.pass}
	order, err := e.graph.Order()
	if err != nil {
		return report, fmt.Errorf("pass %d: %w", e.pass, err)
	}

	e.tracker.BeginPass()
	for _, c := range e.jobs.Drain() {
		e.complete(c, &report)
	}
	for _, c := range e.jobs.Advance(ctx) {
		e.complete(c, &report)
	}

	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.visit(ctx, i, &report)
	}

	e.logger.Debug("Pass complete.", "report", report)
	e.pass++
	for _, fn := range e.observers {
		fn(ctx, report)
	}
	return report, nil
}

// complete applies one job outcome on the evaluation goroutine.
func (e *Evaluator) complete(c jobs.Completion, report *PassReport) {
	report.Completions++
	if !e.table.Has(c.Index) {
		e.logger.Debug("Dropping completion for removed node.", "node", c.Index, "job", c.Name)
		return
	}
	err := c.Err
	if err == nil && c.Install != nil {
		err = c.Install()
	}
	if err != nil {
		e.logger.Warn("Job result not installed; target left unset.", "node", c.Index, "job", c.Name, "error", err)
		e.table.Unset(c.Index)
	}
	if !c.Final {
		e.tracker.Propagate(e.graph.Consumers(c.Index))
		return
	}
	e.tracker.SetProcessing(c.Index, dirty.Idle)
	e.tracker.Mark(c.Index, dirty.UpstreamDirty)
}

func (e *Evaluator) visit(ctx context.Context, i int, report *PassReport) {
	n, ok := e.graph.Node(i)
	if !ok {
		return
	}
	report.Visited++
	logger := e.logger.With("node", n.String())
	epoch := e.table.Epoch(i)

	if slot, missing := n.MissingRequired(); missing {
		report.Unresolved++
		e.table.Unset(i)
		e.tracker.Finish(i, true)
		if e.table.Epoch(i) != epoch {
			logger.Debug("Target released, required input is disconnected.", "slot", slot)
			e.tracker.Propagate(e.graph.Consumers(i))
		}
		return
	}

	entry, ok := e.registry.Lookup(n.Kind)
	if !ok {
		report.Errors++
		if e.tracker.Fail(i) {
			logger.Warn("Node kind has no registered module.")
		}
		return
	}

	eval := evalctx.NewEvaluation(n, e.tracker.Flags(i), e.uiPass, e.pass)
	if e.tracker.NeedsCallback(i, e.inputsChanged(n)) {
		report.Callbacks++
		if st := call(ctx, entry.Evaluate, e.session, eval); st == status.Err {
			report.Errors++
			if e.tracker.Fail(i) {
				logger.Warn("Evaluation callback failed.", "flags", eval.Dirty.String())
			} else {
				logger.Debug("Evaluation callback still failing.", "flags", eval.Dirty.String())
			}
			e.remember(n)
			return
		}
	}
	e.tracker.Recover(i)
	e.remember(n)

	if e.tracker.Processing(i) != dirty.Idle {
		report.Processing++
		e.tracker.Finish(i, false)
		if e.table.Epoch(i) != epoch {
			e.tracker.Propagate(e.graph.Consumers(i))
		}
		return
	}

	ran := false
	if e.tracker.ShouldRunKernel(i) {
		if err := e.runKernel(ctx, entry, eval); err != nil {
			report.Errors++
			if e.tracker.Fail(i) {
				logger.Warn("Kernel failed.", "error", err)
			}
			return
		}
		report.Kernels++
		ran = true
	}
	e.tracker.Finish(i, ran)
	if ran || e.table.Epoch(i) != epoch {
		e.tracker.Propagate(e.graph.Consumers(i))
	}
}

func (e *Evaluator) runKernel(ctx context.Context, entry *registry.Entry, eval *evalctx.Evaluation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panicked: %v", r)
		}
	}()
	if entry.Kernel != nil {
		return entry.Kernel(ctx, e.session, eval)
	}
	return e.session.Composite(eval, gpu.Region{})
}

// call invokes a callback, turning a panic into status.Err.
func call(ctx context.Context, h registry.Handler, c *evalctx.Context, eval *evalctx.Evaluation) (st status.Status) {
	defer func() {
		if r := recover(); r != nil {
			c.Log().Error("Evaluation callback panicked.", "node", eval.Target, "kind", eval.Kind.String(), "panic", r)
			st = status.Err
		}
	}()
	return h(ctx, c, eval)
}

// inputsChanged reports whether any input target changed shape or scene
// since the node's last visit.
func (e *Evaluator) inputsChanged(n *node.Node) bool {
	prev, ok := e.seen[n.Index]
	if !ok {
		return false
	}
	for slot, src := range n.Inputs {
		var cur uint64
		if src != node.NoInput {
			cur = e.table.Epoch(src)
		}
		if slot >= len(prev) || prev[slot] != cur {
			return true
		}
	}
	return false
}

func (e *Evaluator) remember(n *node.Node) {
	epochs := make([]uint64, len(n.Inputs))
	for slot, src := range n.Inputs {
		if src != node.NoInput {
			epochs[slot] = e.table.Epoch(src)
		}
	}
	e.seen[n.Index] = epochs
}
