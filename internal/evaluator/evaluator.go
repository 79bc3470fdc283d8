package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/graph"
	"github.com/vk/evalgraph/internal/jobs"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/params"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/resource"
	"github.com/zclconf/go-cty/cty"
)

// Evaluator owns the evaluation session of one graph. All methods must be
// called from the evaluation goroutine.
type Evaluator struct {
	graph    *graph.Graph
	registry *registry.Registry
	session  *evalctx.Context
	table    *resource.Table
	tracker  *dirty.Tracker
	jobs     *jobs.Scheduler
	logger   *slog.Logger

	pass      int
	uiPass    bool
	observers []PassObserver
	// seen holds, per node and slot, the input epoch observed on the
	// node's last visit.
	seen map[int][]uint64
}

// New creates an evaluator for g and registers a target and dirty record
// for every node already in it.
func New(ctx context.Context, g *graph.Graph, reg *registry.Registry, session *evalctx.Context) *Evaluator {
	e := &Evaluator{
		graph:    g,
		registry: reg,
		session:  session,
		table:    session.Table(),
		tracker:  session.Tracker(),
		jobs:     session.Jobs(),
		logger:   ctxlog.FromContext(ctx),
		seen:     make(map[int][]uint64),
	}
	for _, n := range g.Nodes() {
		e.track(n)
	}
	session.Bind(e)
	return e
}

func (e *Evaluator) track(n *node.Node) {
	if !e.table.Has(n.Index) {
		e.table.Add(n.Index, n.Params)
	}
	if _, ok := e.tracker.Get(n.Index); !ok {
		e.tracker.Add(n.Index)
	}
}

// Graph returns the evaluated graph.
func (e *Evaluator) Graph() *graph.Graph { return e.graph }

// Context returns the session shared with callbacks.
func (e *Evaluator) Context() *evalctx.Context { return e.session }

// PassNumber is the number of passes run so far.
func (e *Evaluator) PassNumber() int { return e.pass }

// PassObserver is called on the evaluation goroutine after every pass.
type PassObserver func(ctx context.Context, r PassReport)

// Observe registers fn to run after every pass.
func (e *Evaluator) Observe(fn PassObserver) {
	e.observers = append(e.observers, fn)
}

// SetUIPass selects whether subsequent passes render for the editor.
func (e *Evaluator) SetUIPass(ui bool) { e.uiPass = ui }

// AddNode adds a node to the graph and gives it a target.
func (e *Evaluator) AddNode(kind node.Kind, name string, p *params.Block) (*node.Node, error) {
	if _, ok := e.registry.Lookup(kind); !ok {
		return nil, fmt.Errorf("node %q: kind %s has no registered module", name, kind)
	}
	n, err := e.graph.Add(kind, name, p)
	if err != nil {
		return nil, err
	}
	e.track(n)
	return n, nil
}

// RemoveNode deletes node i, releasing its target. Consumers that read
// from it become parameter-dirty.
func (e *Evaluator) RemoveNode(i int) error {
	consumers, err := e.graph.Remove(i)
	if err != nil {
		return err
	}
	e.jobs.Untrack(i)
	e.table.Remove(i)
	e.tracker.Remove(i)
	delete(e.seen, i)
	for _, c := range consumers {
		e.tracker.MarkInputChanged(c)
	}
	return nil
}

// Connect wires src into slot of dst.
func (e *Evaluator) Connect(dst, slot, src int) error {
	if err := e.graph.Connect(dst, slot, src); err != nil {
		return err
	}
	e.tracker.MarkInputChanged(dst)
	return nil
}

// Disconnect clears slot of dst.
func (e *Evaluator) Disconnect(dst, slot int) error {
	if err := e.graph.Disconnect(dst, slot); err != nil {
		return err
	}
	e.tracker.MarkInputChanged(dst)
	return nil
}

// SetParameter edits a parameter of node i and marks it dirty.
func (e *Evaluator) SetParameter(i int, name string, v cty.Value) error {
	n, ok := e.graph.Node(i)
	if !ok {
		return fmt.Errorf("node %d: %w", i, graph.ErrUnknownNode)
	}
	n.Params.Set(name, v)
	e.tracker.MarkParameter(i)
	return nil
}

// Force requests a re-render of node i on the next pass.
func (e *Evaluator) Force(i int) error {
	if _, ok := e.graph.Node(i); !ok {
		return fmt.Errorf("node %d: %w", i, graph.ErrUnknownNode)
	}
	e.tracker.Force(i)
	return nil
}

// Failed reports whether node i's last callback or kernel failed and has
// not succeeded since.
func (e *Evaluator) Failed(i int) bool {
	return e.tracker.Failed(i)
}

// Settled reports whether nothing is dirty, processing or in flight.
func (e *Evaluator) Settled() bool {
	return e.tracker.Settled() && e.jobs.Pending() == 0 && e.jobs.Tracked() == 0
}

// Close releases every target and stops outstanding jobs.
func (e *Evaluator) Close() error {
	err := e.jobs.Close()
	e.table.Close()
	return err
}
