// Package dirty tracks, per node, why its output may be stale and whether an
// asynchronous job is still producing it.
package dirty

import (
	"sort"
	"strings"
)

// Flags is a set of dirty reasons.
type Flags uint8

const (
	// ParameterDirty is set when the node's own parameters or connections changed.
	ParameterDirty Flags = 1 << iota
	// UpstreamDirty is set when a direct input produced new output.
	UpstreamDirty
	// ForcedDirty is an explicit re-render request, such as an export.
	ForcedDirty
)

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

// Any reports whether any bit is set.
func (f Flags) Any() bool { return f != 0 }

func (f Flags) String() string {
	if f == 0 {
		return "clean"
	}
	var parts []string
	if f.Has(ParameterDirty) {
		parts = append(parts, "parameter")
	}
	if f.Has(UpstreamDirty) {
		parts = append(parts, "upstream")
	}
	if f.Has(ForcedDirty) {
		parts = append(parts, "forced")
	}
	return strings.Join(parts, "|")
}

// Level is the processing state of a node.
type Level uint8

const (
	Idle Level = iota
	// Loading means a one-shot job is reading the node's resource.
	Loading
	// Rendering means a progressive job is refining the node's output.
	Rendering
)

func (l Level) String() string {
	switch l {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// State is the dirty record of one node.
type State struct {
	Flags      Flags
	Processing Level
	// Failed is set by a callback or kernel error and cleared once a
	// callback succeeds. A failed node retries its callback
	// every pass and never runs its kernel.
	Failed bool
}

// Tracker holds the dirty state of every node. Propagated dirt is staged
// and only becomes visible at the next BeginPass, so dirt travels one graph
// hop per pass. It is owned by the evaluation goroutine.
type Tracker struct {
	states  map[int]*State
	pending map[int]Flags
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		states:  make(map[int]*State),
		pending: make(map[int]Flags),
	}
}

// Add registers node i. New nodes start parameter-dirty.
func (t *Tracker) Add(i int) {
	if i < 0 {
		return
	}
	t.states[i] = &State{Flags: ParameterDirty}
}

// Remove forgets node i.
func (t *Tracker) Remove(i int) {
	delete(t.states, i)
	delete(t.pending, i)
}

func (t *Tracker) get(i int) *State {
	if i < 0 {
		return nil
	}
	return t.states[i]
}

// Get returns a copy of the state of node i.
func (t *Tracker) Get(i int) (State, bool) {
	s := t.get(i)
	if s == nil {
		return State{}, false
	}
	return *s, true
}

// Flags returns the current flags of node i.
func (t *Tracker) Flags(i int) Flags {
	if s := t.get(i); s != nil {
		return s.Flags
	}
	return 0
}

// Mark sets flags on node i immediately.
func (t *Tracker) Mark(i int, f Flags) {
	if s := t.get(i); s != nil {
		s.Flags |= f
	}
}

// MarkParameter flags a parameter or connection edit.
func (t *Tracker) MarkParameter(i int) { t.Mark(i, ParameterDirty) }

// Force requests a re-render of node i on the next pass.
func (t *Tracker) Force(i int) { t.Mark(i, ForcedDirty) }

// Propagate stages UpstreamDirty on consumers for the next pass.
func (t *Tracker) Propagate(consumers []int) {
	for _, c := range consumers {
		if t.get(c) != nil {
			t.pending[c] |= UpstreamDirty
		}
	}
}

// Pending reports the flags staged for node i.
func (t *Tracker) Pending(i int) Flags {
	return t.pending[i]
}

// BeginPass makes staged dirt visible.
func (t *Tracker) BeginPass() {
	for i, f := range t.pending {
		if s := t.get(i); s != nil {
			s.Flags |= f
		}
		delete(t.pending, i)
	}
}

// SetProcessing sets the processing level of node i.
func (t *Tracker) SetProcessing(i int, l Level) {
	if s := t.get(i); s != nil {
		s.Processing = l
	}
}

// Processing returns the processing level of node i.
func (t *Tracker) Processing(i int) Level {
	if s := t.get(i); s != nil {
		return s.Processing
	}
	return Idle
}

// NeedsCallback reports whether the size/state callback of node i must run:
// its parameters changed, a re-render was forced, or an input's shape changed.
func (t *Tracker) NeedsCallback(i int, inputShapeChanged bool) bool {
	s := t.get(i)
	if s == nil {
		return false
	}
	return inputShapeChanged || s.Failed || s.Flags&(ParameterDirty|ForcedDirty) != 0
}

// ShouldRunKernel reports whether the compute kernel of node i runs this pass.
func (t *Tracker) ShouldRunKernel(i int) bool {
	s := t.get(i)
	if s == nil {
		return false
	}
	return s.Flags.Any() && s.Processing == Idle && !s.Failed
}

// Finish records the outcome of node i's turn and clears a previous failure.
// ParameterDirty always clears; UpstreamDirty and ForcedDirty clear only when
// the kernel ran.
func (t *Tracker) Finish(i int, kernelRan bool) {
	s := t.get(i)
	if s == nil {
		return
	}
	s.Failed = false
	s.Flags &^= ParameterDirty
	if kernelRan {
		s.Flags &^= UpstreamDirty | ForcedDirty
	}
}

// Fail records a callback or kernel error on node i. Its flags are kept, so
// a forced request survives until a turn succeeds. Fail reports whether
// this is the first failure since the last successful turn.
func (t *Tracker) Fail(i int) bool {
	s := t.get(i)
	if s == nil {
		return false
	}
	first := !s.Failed
	s.Failed = true
	return first
}

// Recover clears a previous failure once node i's callback succeeded.
func (t *Tracker) Recover(i int) {
	if s := t.get(i); s != nil {
		s.Failed = false
	}
}

// Failed reports whether node i is waiting for a successful callback.
func (t *Tracker) Failed(i int) bool {
	if s := t.get(i); s != nil {
		return s.Failed
	}
	return false
}

// Settled reports whether nothing is staged or processing and every dirty
// node is a failed one. Failed nodes keep retrying but do not hold the
// graph open.
func (t *Tracker) Settled() bool {
	if len(t.pending) > 0 {
		return false
	}
	for _, s := range t.states {
		if s.Processing != Idle || (s.Flags.Any() && !s.Failed) {
			return false
		}
	}
	return true
}

// Busy returns the nodes that currently have a non-idle processing level.
func (t *Tracker) Busy() []int {
	var out []int
	for i, s := range t.states {
		if s.Processing != Idle {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// MarkInputChanged records a connection edit on node i. Rewiring counts as
// parameter dirt.
func (t *Tracker) MarkInputChanged(i int) { t.Mark(i, ParameterDirty) }
