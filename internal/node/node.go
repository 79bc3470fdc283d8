package node

import (
	"fmt"

	"github.com/vk/evalgraph/internal/params"
)

// NoInput marks a disconnected input slot or an absent target.
const NoInput = -1

// Node is a single vertex in the evaluation graph. Its output target shares
// its index.
type Node struct {
	// Index is the stable identity of the node and the key of its target.
	Index int
	// Kind selects the callback family.
	Kind Kind
	// Name is the human-readable instance name from the graph file.
	Name string
	// Params is the kind-specific parameter block, mutated by the editor.
	Params *params.Block
	// Inputs holds the source node index per slot, NoInput when disconnected.
	Inputs []int
}

// New creates a node with all input slots disconnected.
func New(index int, kind Kind, name string, p *params.Block) *Node {
	if p == nil {
		p = params.New(nil)
	}
	inputs := make([]int, kind.Arity())
	for i := range inputs {
		inputs[i] = NoInput
	}
	return &Node{
		Index:  index,
		Kind:   kind,
		Name:   name,
		Params: p,
		Inputs: inputs,
	}
}

// Target returns the index of the node's evaluation target.
func (n *Node) Target() int {
	return n.Index
}

// Input returns the source connected to slot, or NoInput.
func (n *Node) Input(slot int) int {
	if slot < 0 || slot >= len(n.Inputs) {
		return NoInput
	}
	return n.Inputs[slot]
}

// MissingRequired reports the first required slot that is disconnected.
func (n *Node) MissingRequired() (int, bool) {
	for slot := 0; slot < n.Kind.Required(); slot++ {
		if n.Input(slot) == NoInput {
			return slot, true
		}
	}
	return 0, false
}

func (n *Node) String() string {
	return fmt.Sprintf("%s.%s[%d]", n.Kind, n.Name, n.Index)
}
