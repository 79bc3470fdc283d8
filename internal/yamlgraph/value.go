package yamlgraph

import (
	"fmt"
	"math"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// toCty converts a YAML node to the cty value an equivalent HCL literal
// would produce: sequences become tuples and mappings become objects.
func toCty(n *yaml.Node) (cty.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return toCty(n.Content[0])
	case yaml.AliasNode:
		return toCty(n.Alias)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := toCty(c)
			if err != nil {
				return cty.NilVal, fmt.Errorf("line %d: %w", c.Line, err)
			}
			elems[i] = v
		}
		return cty.TupleVal(elems), nil
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return cty.NilVal, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := toCty(n.Content[i+1])
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key.Value] = v
		}
		return cty.ObjectVal(attrs), nil
	case yaml.ScalarNode:
		return scalar(n)
	}
	return cty.NilVal, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func scalar(n *yaml.Node) (cty.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return cty.NilVal, err
		}
		return cty.BoolVal(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return cty.NumberIntVal(i), nil
		}
		fallthrough
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return cty.NilVal, err
		}
		if math.IsNaN(f) {
			return cty.NilVal, fmt.Errorf("line %d: NaN is not a valid number", n.Line)
		}
		return cty.NumberVal(big.NewFloat(f)), nil
	default:
		return cty.StringVal(n.Value), nil
	}
}
