package evalctx

import (
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/params"
)

// Evaluation describes the node being evaluated in the current pass.
type Evaluation struct {
	Target int
	Name   string
	Kind   node.Kind
	Inputs []int
	Params *params.Block
	Dirty  dirty.Flags
	Forced bool
	// UIPass is set when the pass renders for the interactive editor rather
	// than for export.
	UIPass bool
	Pass   int
}

// NewEvaluation builds the record for n.
func NewEvaluation(n *node.Node, flags dirty.Flags, uiPass bool, pass int) *Evaluation {
	inputs := make([]int, len(n.Inputs))
	copy(inputs, n.Inputs)
	return &Evaluation{
		Target: n.Target(),
		Name:   n.Name,
		Kind:   n.Kind,
		Inputs: inputs,
		Params: n.Params,
		Dirty:  flags,
		Forced: flags.Has(dirty.ForcedDirty),
		UIPass: uiPass,
		Pass:   pass,
	}
}

// Input returns the source of slot, or node.NoInput.
func (e *Evaluation) Input(slot int) int {
	if slot < 0 || slot >= len(e.Inputs) {
		return node.NoInput
	}
	return e.Inputs[slot]
}

// ParameterDirty reports whether the node's own parameters changed.
func (e *Evaluation) ParameterDirty() bool {
	return e.Dirty.Has(dirty.ParameterDirty)
}
