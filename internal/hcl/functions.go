package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext exposes a small set of pure functions to parameter
// expressions. Graph files have no variables.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"ceil":   stdlib.CeilFunc,
			"concat": stdlib.ConcatFunc,
			"floor":  stdlib.FloorFunc,
			"format": stdlib.FormatFunc,
			"lower":  stdlib.LowerFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}
